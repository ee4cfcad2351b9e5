// Package testdata provides synthetic student and course fixtures for tests
// and load generation.
package testdata

import (
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

// StudentInput is the JSON body for creating a student over the API.
type StudentInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CourseInput is the JSON body for creating a course over the API.
type CourseInput struct {
	Title string `json:"title"`
	Code  string `json:"code"`
}

// RegistrationInput is the JSON body for registering a student in a course.
type RegistrationInput struct {
	StudentID int64 `json:"student_id"`
	CourseID  int64 `json:"course_id"`
}

var firstNames = []string{
	"Ada", "Grace", "Alan", "Edsger", "Barbara", "Donald", "Margaret",
	"Dennis", "Radia", "Linus", "Katherine", "Tim", "Frances", "Ken",
	"Hedy", "Claude", "Annie", "John", "Mary", "Niklaus",
}

var lastNames = []string{
	"Lovelace", "Hopper", "Turing", "Dijkstra", "Liskov", "Knuth",
	"Hamilton", "Ritchie", "Perlman", "Torvalds", "Johnson", "Lee",
	"Allen", "Thompson", "Lamarr", "Shannon", "Easley", "Backus",
	"Keller", "Wirth",
}

// department holds a course code prefix and the title vocabulary that goes
// with it.
type department struct {
	Prefix string
	Titles []string
}

var departments = []department{
	{Prefix: "CS", Titles: []string{
		"Introduction to Computer Science",
		"Data Structures and Algorithms",
		"Operating Systems",
		"Distributed Systems",
		"Database Systems",
		"Compilers",
	}},
	{Prefix: "MATH", Titles: []string{
		"Calculus I",
		"Linear Algebra",
		"Discrete Mathematics",
		"Probability and Statistics",
		"Real Analysis",
	}},
	{Prefix: "PHYS", Titles: []string{
		"Classical Mechanics",
		"Electromagnetism",
		"Quantum Physics",
		"Thermodynamics",
	}},
	{Prefix: "HIST", Titles: []string{
		"World History to 1500",
		"History of Science",
		"Modern European History",
	}},
	{Prefix: "ENGL", Titles: []string{
		"Academic Writing",
		"Introduction to Literature",
		"Technical Communication",
	}},
	{Prefix: "ECON", Titles: []string{
		"Microeconomics",
		"Macroeconomics",
		"Game Theory",
	}},
}

// Generator creates synthetic registration fixtures for testing.
type Generator struct {
	rng     *rand.Rand
	nonce   string
	counter atomic.Int64
}

// NewGenerator creates a new fixture generator with the given seed for
// reproducibility. Generated emails embed a nonce derived from the seed so
// different runs against the same database do not collide.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewSource(seed)),
		nonce: fmt.Sprintf("%x", uint64(seed)%0xfffff),
	}
}

// NewDeterministicGenerator creates a generator with a fixed seed for
// deterministic tests.
func NewDeterministicGenerator() *Generator {
	return NewGenerator(42)
}

// RandomStudentInput generates a student with a realistic name and an email
// address unique within this generator's lifetime.
func (g *Generator) RandomStudentInput() StudentInput {
	first := firstNames[g.rng.Intn(len(firstNames))]
	last := lastNames[g.rng.Intn(len(lastNames))]

	return StudentInput{
		Name:  first + " " + last,
		Email: g.uniqueEmail(first, last),
	}
}

// RandomCourseInput generates a course with a department-style code unique
// within this generator's lifetime.
func (g *Generator) RandomCourseInput() CourseInput {
	dept := departments[g.rng.Intn(len(departments))]
	title := dept.Titles[g.rng.Intn(len(dept.Titles))]

	return CourseInput{
		Title: title,
		Code:  g.uniqueCourseCode(dept.Prefix),
	}
}

// BatchStudentInputs generates a batch of students with distinct emails.
func (g *Generator) BatchStudentInputs(count int) []StudentInput {
	inputs := make([]StudentInput, count)
	for i := range inputs {
		inputs[i] = g.RandomStudentInput()
	}
	return inputs
}

// BatchCourseInputs generates a batch of courses with distinct codes.
func (g *Generator) BatchCourseInputs(count int) []CourseInput {
	inputs := make([]CourseInput, count)
	for i := range inputs {
		inputs[i] = g.RandomCourseInput()
	}
	return inputs
}

// DuplicateStudentCandidates generates two students that collide on email.
// The second must be rejected by the email uniqueness check.
func (g *Generator) DuplicateStudentCandidates() (StudentInput, StudentInput) {
	first := g.RandomStudentInput()
	second := StudentInput{
		Name:  "Someone Else",
		Email: strings.ToUpper(first.Email), // case must not defeat the check
	}
	return first, second
}

// DuplicateCourseCandidates generates two courses that collide on code.
func (g *Generator) DuplicateCourseCandidates() (CourseInput, CourseInput) {
	first := g.RandomCourseInput()
	second := CourseInput{
		Title: "A Different Title Entirely",
		Code:  strings.ToLower(first.Code), // normalized upper before the check
	}
	return first, second
}

// UniqueEmail returns an email address that no other call on any generator
// will produce. Safe for tests sharing a database across packages.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s.%s@campusreg.test", prefix, strings.ToLower(ulid.Make().String()))
}

// UniqueCourseCode returns a course code that is unique for this process.
// Codes only have four digits of room, so uniqueness across processes is
// handled by rotating the department prefix through the ULID entropy.
func UniqueCourseCode() string {
	id := ulid.Make().String()
	// Letters only; ULIDs are Crockford base32 so strip the digits.
	letters := make([]byte, 0, 4)
	for i := 0; i < len(id) && len(letters) < 4; i++ {
		if id[i] >= 'A' && id[i] <= 'Z' {
			letters = append(letters, id[i])
		}
	}
	for len(letters) < 4 {
		letters = append(letters, 'X')
	}
	return fmt.Sprintf("%s%04d", letters, globalCodeCounter.Add(1)%10000)
}

var globalCodeCounter atomic.Int64

func (g *Generator) uniqueEmail(first, last string) string {
	n := g.counter.Add(1)
	return fmt.Sprintf("%s.%s.%s%d@campusreg.test", strings.ToLower(first), strings.ToLower(last), g.nonce, n)
}

func (g *Generator) uniqueCourseCode(prefix string) string {
	n := g.counter.Add(1)
	// Catalog numbers are 100-9999; wrap within that range.
	number := 100 + (n % 9900)
	return fmt.Sprintf("%s%d", prefix, number)
}
