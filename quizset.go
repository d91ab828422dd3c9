package notequiz

// QuizSet collects the quizzes picked for a session, keyed by record id.
// Setting an id that is already present replaces the value in place and keeps its position.
type QuizSet struct {
	quizzes map[int64]*GeneratedQuiz
	order   []int64 // insertion order of ids
}

// NewQuizSet creates an empty set
func NewQuizSet() *QuizSet {
	return &QuizSet{
		quizzes: make(map[int64]*GeneratedQuiz),
		order:   make([]int64, 0),
	}
}

// Set adds or replaces the quiz with the same id
func (qs *QuizSet) Set(quiz *GeneratedQuiz) {
	if _, ok := qs.quizzes[quiz.ID]; !ok {
		qs.order = append(qs.order, quiz.ID)
	}
	qs.quizzes[quiz.ID] = quiz
}

// Has reports whether id is in the set
func (qs *QuizSet) Has(id int64) bool {
	_, ok := qs.quizzes[id]
	return ok
}

// Len returns the number of distinct ids
func (qs *QuizSet) Len() int {
	return len(qs.order)
}

// Values returns the quizzes in insertion order
func (qs *QuizSet) Values() []GeneratedQuiz {
	values := make([]GeneratedQuiz, 0, len(qs.order))
	for _, id := range qs.order {
		values = append(values, *qs.quizzes[id])
	}
	return values
}
