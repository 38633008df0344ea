package transcript

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

// ErrBadFormat is returned for text that is not a transcript or holds no course records.
var ErrBadFormat = errors.New("transcript: bad format")

const (
	headerMarker = "גיליון ציונים"
	footerMarker = "סוף הגיליון"
	retakeMark   = "*"
)

// season words and the labels used in semester strings.
var seasons = []struct {
	word   string
	label  string
	summer bool
}{
	{word: "חורף", label: "Winter"},
	{word: "אביב", label: "Spring"},
	{word: "קיץ", label: "Summer", summer: true},
}

var (
	courseIDPattern = regexp.MustCompile(`^\d{5,6}$`)
	bidiMarks       = strings.NewReplacer("\u200e", "", "\u200f", "", "\u202a", "", "\u202b", "", "\u202c", "")
)

// grade phrases, longest first.
var gradePhrases = []struct {
	tokens []string
	grade  models.Grade
}{
	{[]string{"פטור", "עם", "ניקוד"}, models.Grade{Kind: models.GradeKindExemptionWithCredit}},
	{[]string{"פטור", "ללא", "ניקוד"}, models.Grade{Kind: models.GradeKindExemptionWithoutCredit}},
	{[]string{"לא", "השלים"}, models.Grade{Kind: models.GradeKindNotComplete}},
	{[]string{"לא-השלים"}, models.Grade{Kind: models.GradeKindNotComplete}},
	{[]string{"עבר"}, models.Grade{Kind: models.GradeKindBinary, Passed: true}},
	{[]string{"נכשל"}, models.Grade{Kind: models.GradeKindBinary, Passed: false}},
}

type record struct {
	status models.CourseStatus
	retake bool
}

// parser holds the scan state of one transcript.
type parser struct {
	counter  float64
	semester *string

	order   []string
	latest  map[string]models.CourseStatus
	retakes []models.CourseStatus
	sport   []models.CourseStatus
}

// Parse turns transcript text into course statuses ordered by semester, with sport courses last.
func Parse(text string) ([]models.CourseStatus, error) {
	body, err := extractBody(text)
	if err != nil {
		return nil, err
	}

	p := &parser{latest: make(map[string]models.CourseStatus)}
	for _, line := range strings.Split(body, "\n") {
		p.scanLine(strings.TrimSpace(line))
	}
	p.repairRetakes()

	result := make([]models.CourseStatus, 0, len(p.order)+len(p.sport))
	for _, id := range p.order {
		result = append(result, p.latest[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return models.SemesterOrder(result[i].Semester) < models.SemesterOrder(result[j].Semester)
	})
	result = append(result, p.sport...)

	if len(result) == 0 {
		return nil, fmt.Errorf("%w: no course records", ErrBadFormat)
	}
	return result, nil
}

func extractBody(text string) (string, error) {
	text = bidiMarks.Replace(norm.NFC.String(text))
	text = strings.ReplaceAll(text, "\r\n", "\n")

	start := strings.Index(text, headerMarker)
	if start < 0 {
		return "", fmt.Errorf("%w: missing header", ErrBadFormat)
	}
	start += len(headerMarker)
	end := strings.Index(text[start:], footerMarker)
	if end < 0 {
		return "", fmt.Errorf("%w: missing footer", ErrBadFormat)
	}
	return text[start : start+end], nil
}

func (p *parser) scanLine(line string) {
	if line == "" {
		return
	}
	tokens := strings.Fields(line)
	retake := false
	cleaned := tokens[:0]
	for _, token := range tokens {
		if strings.Contains(token, retakeMark) {
			retake = true
			token = strings.ReplaceAll(token, retakeMark, "")
			if token == "" {
				continue
			}
		}
		cleaned = append(cleaned, token)
	}

	if status, ok := p.parseRecord(cleaned); ok {
		p.add(record{status: status, retake: retake})
		return
	}
	p.scanSeason(cleaned)
}

// scanSeason advances the semester counter. Summer terms continue the preceding term by half a step,
// the next regular term completes it.
func (p *parser) scanSeason(tokens []string) {
	for _, token := range tokens {
		for _, season := range seasons {
			if token != season.word {
				continue
			}
			if season.summer || p.counter != float64(int(p.counter)) {
				p.counter += 0.5
			} else {
				p.counter++
			}
			label := season.label + "_" + strconv.FormatFloat(p.counter, 'f', -1, 64)
			p.semester = &label
			return
		}
	}
}

// parseRecord reads `<id> <name...> <credit> [grade]`.
func (p *parser) parseRecord(tokens []string) (models.CourseStatus, bool) {
	idIndex := -1
	for i, token := range tokens {
		if courseIDPattern.MatchString(token) {
			idIndex = i
			break
		}
	}
	if idIndex < 0 {
		return models.CourseStatus{}, false
	}
	rest := tokens[idIndex+1:]

	grade, gradeLen := parseGrade(rest)
	rest = rest[:len(rest)-gradeLen]
	if len(rest) == 0 {
		return models.CourseStatus{}, false
	}
	creditValue, ok := parseCredit(rest[len(rest)-1])
	if !ok {
		return models.CourseStatus{}, false
	}

	status := models.CourseStatus{
		Course: models.Course{
			ID:     tokens[idIndex],
			Name:   strings.Join(rest[:len(rest)-1], " "),
			Credit: creditValue,
		},
		Semester: p.semester,
		Grade:    grade,
		State:    models.StateForGrade(grade),
	}
	if grade != nil && grade.Kind == models.GradeKindExemptionWithoutCredit {
		status.Course.Credit = decimal.Zero
	}
	return status, true
}

// parseGrade classifies the trailing grade tokens. It returns nil and 0 when the record has no grade.
func parseGrade(tokens []string) (*models.Grade, int) {
	if len(tokens) == 0 {
		return nil, 0
	}
	if _, ok := parseCredit(tokens[len(tokens)-1]); ok {
		return nil, 0
	}
	for _, phrase := range gradePhrases {
		n := len(phrase.tokens)
		if len(tokens) < n {
			continue
		}
		tail := tokens[len(tokens)-n:]
		matched := true
		for i := range tail {
			if tail[i] != phrase.tokens[i] {
				matched = false
				break
			}
		}
		if matched {
			grade := phrase.grade
			return &grade, n
		}
	}
	score, err := strconv.Atoi(tokens[len(tokens)-1])
	if err == nil && score >= 0 && score <= 100 {
		return models.NumericGrade(score), 1
	}
	return nil, 0
}

func parseCredit(token string) (decimal.Decimal, bool) {
	if !strings.Contains(token, ".") {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(token)
	if err != nil || value.IsNegative() {
		return decimal.Zero, false
	}
	return value, true
}

func (p *parser) add(rec record) {
	id := rec.status.Course.ID
	if strings.HasPrefix(id, models.SportCoursePrefix) {
		p.sport = append(p.sport, rec.status)
		return
	}
	if rec.retake {
		p.retakes = append(p.retakes, rec.status)
	}
	if previous, seen := p.latest[id]; seen {
		rec.status.TimesRepeated = previous.TimesRepeated + 1
	} else {
		p.order = append(p.order, id)
	}
	p.latest[id] = rec.status
}

// repairRetakes restores the most recent real grade of courses whose latest record is not complete.
func (p *parser) repairRetakes() {
	for _, id := range p.order {
		status := p.latest[id]
		if status.Grade == nil || status.Grade.Kind != models.GradeKindNotComplete {
			continue
		}
		for i := len(p.retakes) - 1; i >= 0; i-- {
			candidate := p.retakes[i]
			if candidate.Course.ID != id || candidate.Grade == nil || candidate.Grade.Kind == models.GradeKindNotComplete {
				continue
			}
			status.Grade = candidate.Grade
			status.State = models.StateForGrade(candidate.Grade)
			p.latest[id] = status
			break
		}
	}
}
