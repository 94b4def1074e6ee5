package questionbank

import "adaptive-quiz-service/internal/domain"

func choice(id, text string, options []string, correct int, explanation string) domain.Question {
	return domain.Question{
		ID:                 id,
		Type:               domain.QuestionMultipleChoice,
		Text:               text,
		Options:            options,
		CorrectAnswerIndex: &correct,
		Explanation:        explanation,
	}
}

func trueFalse(id, text string, answer bool, explanation string) domain.Question {
	correct := 1
	if answer {
		correct = 0
	}
	return domain.Question{
		ID:                 id,
		Type:               domain.QuestionTrueFalse,
		Text:               text,
		Options:            []string{"True", "False"},
		CorrectAnswerIndex: &correct,
		Explanation:        explanation,
	}
}

func blank(id, text, answer, explanation string) domain.Question {
	return domain.Question{
		ID:                id,
		Type:              domain.QuestionFillInBlank,
		Text:              text,
		CorrectAnswerText: answer,
		Explanation:       explanation,
	}
}

var defaultEntries = []Entry{
	{"Geography", choice("static-1", "What is the capital of France?", []string{"London", "Berlin", "Paris", "Madrid"}, 2,
		"Paris is the capital and most populous city of France.")},
	{"Geography", trueFalse("static-2", "The Nile flows into the Mediterranean Sea.", true,
		"The Nile empties into the Mediterranean through its delta in northern Egypt.")},
	{"Geography", blank("static-3", "The largest ocean on Earth is the ____ Ocean.", "Pacific",
		"The Pacific covers roughly a third of the planet's surface.")},
	{"Science", trueFalse("static-4", "Water boils at 100 degrees Celsius at sea level.", true,
		"This is a standard physical property of water at one atmosphere.")},
	{"Science", blank("static-5", "The powerhouse of the cell is the ____.", "mitochondria",
		"Mitochondria generate most of the chemical energy needed to power the cell.")},
	{"Science", choice("static-6", "Which gas do plants absorb for photosynthesis?", []string{"Oxygen", "Carbon dioxide", "Nitrogen", "Helium"}, 1,
		"Plants take in carbon dioxide and release oxygen.")},
	{"Mathematics", choice("static-7", "What is 7 x 8?", []string{"54", "56", "58", "64"}, 1,
		"Seven eights are fifty six.")},
	{"Mathematics", trueFalse("static-8", "Every prime number is odd.", false,
		"2 is prime and even.")},
	{"Mathematics", blank("static-9", "The square root of 81 is ____.", "9",
		"9 x 9 = 81.")},
	{"History", choice("static-10", "In which year did World War II end?", []string{"1943", "1944", "1945", "1946"}, 2,
		"The war ended in 1945 with the surrender of Germany and then Japan.")},
	{"History", trueFalse("static-11", "The Great Wall of China was built in a single dynasty.", false,
		"It was built and rebuilt over many dynasties, most visibly the Ming.")},
	{"History", blank("static-12", "The first person to walk on the Moon was Neil ____.", "Armstrong",
		"Neil Armstrong stepped onto the Moon on 20 July 1969.")},
	{"Computer Science", choice("static-13", "Which data structure is first in, first out?", []string{"Stack", "Queue", "Tree", "Graph"}, 1,
		"A queue removes elements in the order they were added.")},
	{"Computer Science", trueFalse("static-14", "Binary search requires a sorted input.", true,
		"Halving the search space only works when the data is ordered.")},
	{"Computer Science", blank("static-15", "HTTP status code 404 means Not ____.", "Found",
		"404 Not Found means the server has no resource at that path.")},
}
