package cli

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stemsi/exstem-portal/internal/model"
)

const seedYAML = `
students:
  - reg_no: STM/001
    name: Ada Obi
    class: JSS 2
    password: pass1234
  - reg_no: STM/002
    name: Bayo Ade
    class: JSS 2
    password: pass1234
exams:
  - subject: Mathematics
    class: JSS 2
    duration_minutes: 30
    publish: true
    objective_questions:
      - prompt: 2 + 2
        options: ["3", "4", "5", "6"]
        correct: "4"
    theory_questions:
      - prompt: Prove that 2 + 2 = 4.
  - subject: English
    class: JSS 2
    duration_minutes: 20
    objective_questions:
      - prompt: Pick the noun
        options: [run, table, quickly, blue]
        correct: table
`

type memExams struct {
	mu    sync.Mutex
	exams []*model.Exam
	err   error
}

func (m *memExams) Create(_ context.Context, e *model.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.exams = append(m.exams, e)
	return nil
}

type memStudents struct {
	mu       sync.Mutex
	students map[string]*model.Student
}

func (m *memStudents) Upsert(_ context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.students == nil {
		m.students = make(map[string]*model.Student)
	}
	m.students[s.RegNo] = s
	return nil
}

func plainHash(p string) (string, error) { return "hashed:" + p, nil }

func TestParseSeedFile(t *testing.T) {
	f, err := ParseSeedFile(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f.Students) != 2 || len(f.Exams) != 2 {
		t.Fatalf("unexpected counts: %d students, %d exams", len(f.Students), len(f.Exams))
	}
	if f.Exams[0].Class != model.ClassJSS2 || !f.Exams[0].Publish {
		t.Fatalf("unexpected first exam %+v", f.Exams[0])
	}
}

func TestParseSeedFileRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown key": "exams:\n  - subjekt: Maths\n",
		"bad class":   "students:\n  - {reg_no: A1, name: A, class: JSS 9, password: x}\n",
		"duplicate": "students:\n  - {reg_no: A1, name: A, class: SS 1, password: x}\n" +
			"  - {reg_no: A1, name: B, class: SS 1, password: y}\n",
		"correct not an option": `exams:
  - subject: Maths
    class: SS 1
    duration_minutes: 10
    objective_questions:
      - {prompt: q, options: [a, b, c, d], correct: e}
`,
		"zero duration": "exams:\n  - {subject: Maths, class: SS 1, duration_minutes: 0}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseSeedFile(strings.NewReader(doc)); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestParseSeedFileAcceptsEmptyDocument(t *testing.T) {
	f, err := ParseSeedFile(strings.NewReader(""))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f.Students)+len(f.Exams) != 0 {
		t.Fatalf("expected nothing, got %+v", f)
	}
}

func TestSeederWritesEverything(t *testing.T) {
	f, err := ParseSeedFile(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	exams := &memExams{}
	students := &memStudents{}
	seeder := &Seeder{Exams: exams, Students: students, Hash: plainHash, Concurrency: 2}

	res, err := seeder.Run(context.Background(), f)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Students != 2 || res.Exams != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := students.students["STM/001"].PasswordHash; got != "hashed:pass1234" {
		t.Fatalf("password not hashed: %q", got)
	}

	statuses := map[string]model.ExamStatus{}
	for _, e := range exams.exams {
		statuses[e.Subject] = e.Status
		for _, q := range e.ObjectiveQuestions {
			if q.ID.String() == "00000000-0000-0000-0000-000000000000" {
				t.Fatalf("question %q has no id", q.Prompt)
			}
		}
	}
	if statuses["Mathematics"] != model.ExamStatusPublished || statuses["English"] != model.ExamStatusDraft {
		t.Fatalf("unexpected statuses %v", statuses)
	}
}

func TestSeederReportsFailure(t *testing.T) {
	f, err := ParseSeedFile(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	boom := errors.New("db down")
	seeder := &Seeder{Exams: &memExams{err: boom}, Students: &memStudents{}, Hash: plainHash}

	if _, err := seeder.Run(context.Background(), f); !errors.Is(err, boom) {
		t.Fatalf("expected db error, got %v", err)
	}
}
