package quiz

import "strings"

// Book names used in routes, logs, and asset lookups.
const (
	BookGoldilocks = "goldilocks"
	BookPeter      = "peter"
)

// Goldilocks returns the quiz steps for "Goldilocks and the Three Bears".
func Goldilocks() []Question {
	return []Question{
		{
			Ordinal: 1, Route: "/GodAct1", Next: "/GodAct2", Book: BookGoldilocks,
			Prompt:   "What is the title of this story?",
			CueFile:  "/title_1.mp3",
			Endpoint: "/api/check-question1/",
			Shape:    ShapeFreeText, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 2, Route: "/GodAct2", Next: "/GodAct3", Book: BookGoldilocks,
			Prompt:   "Who is the author of this story?",
			CueFile:  "/author_1.mp3",
			Endpoint: "/api/check-question2/",
			Shape:    ShapeFreeText, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 3, Route: "/GodAct3", Next: "/GodAct4", Book: BookGoldilocks,
			Prompt:   "What broad genre is this story?",
			CueFile:  "/genre.mp3",
			Endpoint: "/api/check-question3/",
			Shape:    ShapeChoice, Choices: []string{"Fiction", "Non-Fiction"},
			ListenFor: defaultListenFor,
		},
		{
			Ordinal: 4, Route: "/GodAct4", Next: "/GodAct5", Book: BookGoldilocks,
			Prompt:   "Who are the main characters in this story?",
			CueFile:  "/char.mp3",
			Endpoint: "/api/check-question4/",
			Shape:    ShapeFreeText, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 5, Route: "/GodAct5", Next: "/GodAct6", Book: BookGoldilocks,
			Prompt:   "Where does the story take place?",
			CueFile:  "/take.mp3",
			Endpoint: "/api/check-question5/",
			Shape:    ShapeFreeText, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 6, Route: "/GodAct6", Next: "/GodAct7", Book: BookGoldilocks,
			Prompt:   "What are 3 important things that happened in the story?",
			CueFile:  "/choose.mp3",
			Endpoint: "/api/check-question6/",
			Shape:    ShapeMultiField, FieldCount: 3, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 7, Route: "/GodAct7", Next: "/GodAct8", Book: BookGoldilocks,
			Prompt:   "Who is your favourite character, and why?",
			CueFile:  "/sen.mp3",
			Endpoint: "/api/check-goldilocks-favourite-character/",
			Shape:    ShapeFreeText, ListenFor: longListenFor,
		},
		{
			Ordinal: 8, Route: "/GodAct8", Next: "/GodAct9", Book: BookGoldilocks,
			Prompt:   "Which is your favourite part of the story, and why?",
			CueFile:  "/fav_1.mp3",
			Endpoint: "/api/check-question8/",
			Shape:    ShapeFreeText, ListenFor: longListenFor,
		},
		{
			// The rating step is acknowledged locally, not graded.
			Ordinal: 9, Route: "/GodAct9", Next: "/", Book: BookGoldilocks,
			Prompt:  "Rate this book and explain why.",
			CueFile: "/rate.mp3",
			Shape:   ShapeRating, ListenFor: longListenFor,
		},
	}
}

// Peter returns the quiz steps for "The Tale of Peter Rabbit".
func Peter() []Question {
	return []Question{
		{
			Ordinal: 2, Route: "/PetAct2", Next: "/PetAct3", Book: BookPeter,
			Prompt:   "Who is the author of this story?",
			CueFile:  "/author.mp3",
			Endpoint: "/api/check-peter-question2/",
			Shape:    ShapeFreeText, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 3, Route: "/PetAct3", Next: "/PetAct4", Book: BookPeter,
			Prompt:   "What broad genre is this story?",
			CueFile:  "/genre.mp3",
			Endpoint: "/api/check-peter-question3/",
			Shape:    ShapeChoice, Choices: []string{"Fiction", "Non-Fiction"},
			ListenFor: defaultListenFor,
		},
		{
			Ordinal: 4, Route: "/PetAct4", Next: "/PetAct5", Book: BookPeter,
			Prompt:   "Who are the main characters in this story?",
			CueFile:  "/char.mp3",
			Endpoint: "/api/check-peter-question4/",
			Shape:    ShapeFreeText, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 5, Route: "/PetAct5", Next: "/PetAct6", Book: BookPeter,
			Prompt:   "Where does the story take place?",
			CueFile:  "/take.mp3",
			Endpoint: "/api/check-peter-question5/",
			Shape:    ShapeFreeText, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 6, Route: "/PetAct6", Next: "/PetAct7", Book: BookPeter,
			Prompt:   "What did Peter's mother tell him not to do?",
			CueFile:  "/mother.mp3",
			Endpoint: "/api/check-peter-question6/",
			Shape:    ShapeFreeText, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 7, Route: "/PetAct7", Next: "/PetAct8", Book: BookPeter,
			Prompt:   "What are 3 important things that happened in the story?",
			CueFile:  "/choose.mp3",
			Endpoint: "/api/check-peter-question7/",
			Shape:    ShapeMultiField, FieldCount: 3, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 8, Route: "/PetAct8", Next: "/PetAct9", Book: BookPeter,
			Prompt:   "What is the problem in the story?",
			CueFile:  "/problem.mp3",
			Endpoint: "/api/check-peter-question8/",
			Shape:    ShapeFreeText, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 9, Route: "/PetAct9", Next: "/PetAct10", Book: BookPeter,
			Prompt:   "How is the problem solved at the end?",
			CueFile:  "/solved.mp3",
			Endpoint: "/api/check-peter-question9/",
			Shape:    ShapeFreeText, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 10, Route: "/PetAct10", Next: "/PetAct11", Book: BookPeter,
			Prompt:   "Where did Peter lose his jacket and shoes?",
			CueFile:  "/jacket.mp3",
			Endpoint: "/api/check-peter-question10/",
			Shape:    ShapeFreeText, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 11, Route: "/PetAct11", Next: "/PetAct12", Book: BookPeter,
			Prompt:   "How did Peter escape from Mr. McGregor's garden?",
			CueFile:  "/escape.mp3",
			Endpoint: "/api/check-peter-question11/",
			Shape:    ShapeFreeText, ListenFor: longListenFor,
		},
		{
			Ordinal: 12, Route: "/PetAct12", Next: "/PetAct13", Book: BookPeter,
			Prompt:   "What happened to Peter when he got home?",
			CueFile:  "/home.mp3",
			Endpoint: "/api/check-peter-question12/",
			Shape:    ShapeFreeText, ListenFor: defaultListenFor,
		},
		{
			Ordinal: 13, Route: "/PetAct13", Next: "/PetAct14", Book: BookPeter,
			Prompt:   "Who is your favourite character, and why?",
			CueFile:  "/sen.mp3",
			Endpoint: "/api/check-peter-question13/",
			Shape:    ShapeFreeText, ListenFor: longListenFor,
		},
		{
			Ordinal: 14, Route: "/PetAct14", Next: "/PetAct15", Book: BookPeter,
			Prompt:   "What lesson does this story teach us?",
			CueFile:  "/lesson.mp3",
			Endpoint: "/api/check-peter-question14/",
			Shape:    ShapeFreeText, ListenFor: longListenFor,
		},
		{
			Ordinal: 15, Route: "/PetAct15", Next: "/", Book: BookPeter,
			Prompt:   "Rate this book and explain why.",
			CueFile:  "/rate.mp3",
			Endpoint: "/api/check-peter-question15/",
			Shape:    ShapeRating, ListenFor: longListenFor,
		},
	}
}

// Catalog returns a book's questions by name.
func Catalog(book string) ([]Question, error) {
	switch strings.ToLower(strings.TrimSpace(book)) {
	case BookGoldilocks, "":
		return Goldilocks(), nil
	case BookPeter:
		return Peter(), nil
	default:
		return nil, ErrUnknownQuestion
	}
}

// ByRoute finds a question by its client-side route in either book.
func ByRoute(route string) (Question, error) {
	route = strings.TrimSpace(route)
	if route != "" && !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	for _, book := range [][]Question{Goldilocks(), Peter()} {
		for _, q := range book {
			if strings.EqualFold(q.Route, route) {
				return q, nil
			}
		}
	}
	return Question{}, ErrUnknownQuestion
}
