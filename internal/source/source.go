// Package source draws quiz question sets.
package source

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/fakeyudi/intervbot/internal/dataset"
	"github.com/fakeyudi/intervbot/internal/question"
	"github.com/fakeyudi/intervbot/internal/remote"
)

// Source produces a quiz question set.
type Source interface {
	// Name identifies the source in logs and stored payloads.
	Name() string
	Draw(ctx context.Context, q dataset.Query) (Result, error)
}

// Result is a drawn question set.
type Result struct {
	Questions []question.Question
	// Available is how many questions matched before the limit was applied.
	Available int
	Source    string
}

// QuestionAPI is the part of the remote client the API source uses.
type QuestionAPI interface {
	Questions(ctx context.Context, q remote.QuestionsQuery) (*remote.QuestionsResponse, error)
}

// API draws from the service's question endpoint.
type API struct {
	Client QuestionAPI
}

func (API) Name() string { return "api" }

func (a API) Draw(ctx context.Context, q dataset.Query) (Result, error) {
	resp, err := a.Client.Questions(ctx, remote.QuestionsQuery{
		Role:       q.Role,
		Difficulty: q.Difficulty,
		Limit:      q.Limit,
	})
	if err != nil {
		return Result{}, err
	}
	available := resp.Available
	if available == 0 {
		available = len(resp.Questions)
	}
	return Result{Questions: resp.Questions, Available: available, Source: a.Name()}, nil
}

// Loader returns a raw question set.
type Loader interface {
	Load() ([]question.Question, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func() ([]question.Question, error)

func (f LoaderFunc) Load() ([]question.Question, error) { return f() }

// RemoteDataset loads the static set the service publishes at
// /questions.json.
func RemoteDataset(ctx context.Context, c *remote.Client) Loader {
	return LoaderFunc(func() ([]question.Question, error) {
		data, err := c.Dataset(ctx)
		if err != nil {
			return nil, err
		}
		return dataset.Decode(data, dataset.JSON)
	})
}

// Dataset draws locally from a static question set.
type Dataset struct {
	Loader Loader
	// Rand shuffles the pool; nil uses the global source.
	Rand *rand.Rand
}

func (Dataset) Name() string { return "dataset" }

// ErrNoData is returned when the static set is missing or empty.
var ErrNoData = errors.New("no questions data available")

func (d Dataset) Draw(ctx context.Context, q dataset.Query) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	all, err := d.Loader.Load()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrNoData, err)
	}
	if len(all) == 0 {
		return Result{}, ErrNoData
	}
	qs, available := dataset.Select(all, q, d.Rand)
	return Result{Questions: qs, Available: available, Source: d.Name()}, nil
}

// Fallback tries Primary and, if it fails, Secondary. The primary failure is
// logged, not returned. Only cancellation of the caller's ctx skips the
// secondary.
type Fallback struct {
	Primary   Source
	Secondary Source
	// PrimaryTimeout bounds the primary draw on its own; zero means only
	// ctx bounds it.
	PrimaryTimeout time.Duration
	Log            zerolog.Logger
}

func (f Fallback) Name() string { return f.Primary.Name() + "+" + f.Secondary.Name() }

func (f Fallback) Draw(ctx context.Context, q dataset.Query) (Result, error) {
	pctx := ctx
	if f.PrimaryTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, f.PrimaryTimeout)
		defer cancel()
	}
	res, err := f.Primary.Draw(pctx, q)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	f.Log.Warn().Err(err).Str("source", f.Primary.Name()).Msg("question source failed, falling back")
	return f.Secondary.Draw(ctx, q)
}
