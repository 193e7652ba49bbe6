package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/repository"
	"github.com/stemsi/exstem-portal/internal/service"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const defaultSeedConcurrency = 4

// SeedFile is the YAML layout of an exam bank seed.
type SeedFile struct {
	Students []SeedStudent `yaml:"students"`
	Exams    []SeedExam    `yaml:"exams"`
}

// SeedStudent is one student account in a seed file.
type SeedStudent struct {
	RegNo    string           `yaml:"reg_no"`
	Name     string           `yaml:"name"`
	Class    model.ClassLevel `yaml:"class"`
	Password string           `yaml:"password"`
}

// SeedExam is one exam in a seed file. Publish skips the Draft stage.
type SeedExam struct {
	Subject            string           `yaml:"subject"`
	Class              model.ClassLevel `yaml:"class"`
	DurationMinutes    int              `yaml:"duration_minutes"`
	Publish            bool             `yaml:"publish"`
	ObjectiveQuestions []SeedObjective  `yaml:"objective_questions"`
	TheoryQuestions    []SeedTheory     `yaml:"theory_questions"`
}

// SeedObjective is one multiple-choice question.
type SeedObjective struct {
	Prompt  string   `yaml:"prompt"`
	Options []string `yaml:"options"`
	Correct string   `yaml:"correct"`
}

// SeedTheory is one free-text question.
type SeedTheory struct {
	Prompt string `yaml:"prompt"`
}

// ParseSeedFile decodes and validates a seed document. Unknown keys are
// rejected so typos do not silently drop data.
func ParseSeedFile(r io.Reader) (*SeedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f SeedFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	regNos := make(map[string]struct{}, len(f.Students))
	for i, s := range f.Students {
		if s.RegNo == "" || s.Name == "" || s.Password == "" {
			return nil, fmt.Errorf("student %d: reg_no, name and password are required", i+1)
		}
		if !s.Class.Valid() {
			return nil, fmt.Errorf("student %s: %w: %q", s.RegNo, model.ErrInvalidClass, s.Class)
		}
		if _, dup := regNos[s.RegNo]; dup {
			return nil, fmt.Errorf("student %s: duplicate reg_no", s.RegNo)
		}
		regNos[s.RegNo] = struct{}{}
	}

	for i, e := range f.Exams {
		if e.Subject == "" {
			return nil, fmt.Errorf("exam %d: subject is required", i+1)
		}
		if err := e.toExam().Validate(); err != nil {
			return nil, fmt.Errorf("exam %d (%s): %w", i+1, e.Subject, err)
		}
	}
	return &f, nil
}

func (e SeedExam) toExam() *model.Exam {
	req := model.CreateExamRequest{
		Subject:            e.Subject,
		Class:              e.Class,
		DurationMinutes:    e.DurationMinutes,
		ObjectiveQuestions: make([]model.AddObjectiveQuestionItem, len(e.ObjectiveQuestions)),
		TheoryQuestions:    make([]model.AddTheoryQuestionItem, len(e.TheoryQuestions)),
	}
	for i, q := range e.ObjectiveQuestions {
		req.ObjectiveQuestions[i] = model.AddObjectiveQuestionItem{Prompt: q.Prompt, Options: q.Options, Correct: q.Correct}
	}
	for i, q := range e.TheoryQuestions {
		req.TheoryQuestions[i] = model.AddTheoryQuestionItem{Prompt: q.Prompt}
	}

	exam := service.NewDraftExam(req, 0)
	if e.Publish {
		exam.Status = model.ExamStatusPublished
	}
	return exam
}

// ExamCreator stores a new exam with its questions.
type ExamCreator interface {
	Create(ctx context.Context, e *model.Exam) error
}

// StudentUpserter stores or refreshes a student account.
type StudentUpserter interface {
	Upsert(ctx context.Context, s *model.Student) error
}

// Seeder writes a parsed seed file.
type Seeder struct {
	Exams       ExamCreator
	Students    StudentUpserter
	Hash        func(password string) (string, error)
	Concurrency int
}

// SeedResult counts what a seed run wrote.
type SeedResult struct {
	Students int
	Exams    int
}

// Run writes every student and exam, Concurrency at a time. The first
// failure cancels the rest.
func (s *Seeder) Run(ctx context.Context, f *SeedFile) (SeedResult, error) {
	limit := s.Concurrency
	if limit <= 0 {
		limit = defaultSeedConcurrency
	}

	var students, exams atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, st := range f.Students {
		g.Go(func() error {
			hash, err := s.Hash(st.Password)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", st.RegNo, err)
			}
			student := &model.Student{RegNo: st.RegNo, Name: st.Name, Class: st.Class, PasswordHash: hash}
			if err := s.Students.Upsert(gctx, student); err != nil {
				return fmt.Errorf("upsert student %s: %w", st.RegNo, err)
			}
			students.Add(1)
			return nil
		})
	}

	for _, ex := range f.Exams {
		g.Go(func() error {
			exam := ex.toExam()
			if err := s.Exams.Create(gctx, exam); err != nil {
				return fmt.Errorf("create exam %s (%s): %w", ex.Subject, ex.Class, err)
			}
			exams.Add(1)
			return nil
		})
	}

	err := g.Wait()
	return SeedResult{Students: int(students.Load()), Exams: int(exams.Load())}, err
}

func newSeedCmd(e *env) *cobra.Command {
	var file string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load students and an exam bank from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer e.close()

			fh, err := os.Open(file)
			if err != nil {
				return err
			}
			defer fh.Close()

			seed, err := ParseSeedFile(fh)
			if err != nil {
				return err
			}

			pool, err := e.postgres(cmd.Context())
			if err != nil {
				return err
			}

			cost := e.cfg.BcryptCost
			seeder := &Seeder{
				Exams:    repository.NewExamRepository(pool),
				Students: repository.NewStudentRepository(pool),
				Hash: func(password string) (string, error) {
					b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
					return string(b), err
				},
				Concurrency: concurrency,
			}

			res, err := seeder.Run(cmd.Context(), seed)
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d students and %d exams\n", res.Students, res.Exams)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file")
	cmd.Flags().IntVar(&concurrency, "concurrency", defaultSeedConcurrency, "parallel writes")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
