package engine

import (
	"context"
	"math"

	"github.com/fakeyudi/intervbot/internal/question"
	"github.com/fakeyudi/intervbot/internal/remote"
)

// InterviewAPI is the part of the remote client an interview needs.
type InterviewAPI interface {
	StartInterview(ctx context.Context, req remote.StartInterviewRequest) (*remote.StartInterviewResponse, error)
	SubmitAnswer(ctx context.Context, req remote.SubmitAnswerRequest) (*remote.SubmitAnswerResponse, error)
	EndSession(ctx context.Context, sessionID string) error
}

// QuizSaver persists finished quizzes.
type QuizSaver interface {
	SaveQuizResult(ctx context.Context, res remote.QuizResult) error
}

// RemoteGrader runs interviews against the scoring service. The service
// stores completed interviews itself, so Finalize does nothing.
type RemoteGrader struct {
	API InterviewAPI
}

func (RemoteGrader) Kind() Kind { return Interview }

func (g RemoteGrader) Begin(ctx context.Context, req StartRequest) (Started, error) {
	resp, err := g.API.StartInterview(ctx, remote.StartInterviewRequest{
		Role:       req.Role,
		Limit:      req.Limit,
		Difficulty: string(req.Difficulty),
	})
	if err != nil {
		return Started{}, err
	}
	return Started{
		SessionID: resp.SessionID,
		Questions: resp.Questions,
		Requested: req.Limit,
		Available: len(resp.Questions),
	}, nil
}

// Grade sends the answer for scoring. A timed-out question with nothing
// typed goes out as an empty answer; the placeholder stays local.
func (g RemoteGrader) Grade(ctx context.Context, sub Submission) (Grade, error) {
	answer := sub.Answer
	if sub.Unanswered {
		answer = ""
	}
	resp, err := g.API.SubmitAnswer(ctx, remote.SubmitAnswerRequest{
		SessionID: sub.SessionID,
		Answer:    answer,
	})
	if err != nil {
		return Grade{}, err
	}
	return Grade{
		Feedback:       resp.Feedback,
		Score:          resp.Score,
		Tone:           resp.Tone,
		ExpectedAnswer: resp.ExpectedAnswer,
		Complete:       resp.IsComplete,
	}, nil
}

func (RemoteGrader) Finalize(context.Context, Results) error { return nil }

func (g RemoteGrader) End(ctx context.Context, sessionID string) error {
	return g.API.EndSession(ctx, sessionID)
}

// LocalGrader runs a prepared quiz. Answers are checked against each
// question's correct answer by exact string comparison.
type LocalGrader struct {
	Questions []question.Question
	Requested int
	Available int
	// Saver, if set, receives the finished quiz.
	Saver QuizSaver
}

func (LocalGrader) Kind() Kind { return Quiz }

func (g LocalGrader) Begin(ctx context.Context, req StartRequest) (Started, error) {
	if err := ctx.Err(); err != nil {
		return Started{}, err
	}
	return Started{
		Questions: append([]question.Question(nil), g.Questions...),
		Requested: g.Requested,
		Available: g.Available,
	}, nil
}

func (LocalGrader) Grade(ctx context.Context, sub Submission) (Grade, error) {
	if err := ctx.Err(); err != nil {
		return Grade{}, err
	}
	correct := !sub.Unanswered && sub.Answer == sub.Question.CorrectAnswer
	g := Grade{Correct: correct, ExpectedAnswer: sub.Question.CorrectAnswer}
	if correct {
		g.Score = remote.NewScore(100)
	} else {
		g.Score = remote.NewScore(0)
	}
	return g, nil
}

func (g LocalGrader) Finalize(ctx context.Context, res Results) error {
	if g.Saver == nil {
		return nil
	}
	return g.Saver.SaveQuizResult(ctx, QuizResultFor(res))
}

func (LocalGrader) End(context.Context, string) error { return nil }

// QuizResultFor builds the persisted form of a finished quiz.
func QuizResultFor(res Results) remote.QuizResult {
	selections := make([]*string, len(res.Questions))
	for _, a := range res.Answers {
		if a.Unanswered || a.Index < 0 || a.Index >= len(selections) {
			continue
		}
		answer := a.Answer
		selections[a.Index] = &answer
	}
	questions := make([]remote.QuizQuestion, len(res.Questions))
	for i, q := range res.Questions {
		questions[i] = remote.QuizQuestion{
			Question:      q.Text,
			CorrectAnswer: q.CorrectAnswer,
			Options:       q.Options,
		}
	}
	role := res.Role
	if role == "" {
		role = "Quiz"
	}
	return remote.QuizResult{
		Role:            role,
		Difficulty:      string(res.Difficulty),
		Score:           res.Correct,
		Total:           res.Total,
		Selections:      selections,
		Questions:       questions,
		DurationSeconds: int(math.Round(res.Duration().Seconds())),
	}
}
