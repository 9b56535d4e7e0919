package report

import (
	"fmt"
	"strings"

	"github.com/jonathan/talent-compass/internal/schemas"
	"github.com/jonathan/talent-compass/internal/types"
)

const riasecLetters = "RIASEC"

// Validate runs the local structural and evidentiary checks on a finished report and returns
// how many checks ran. expectedCode is skipped when empty. No network access.
func Validate(r types.Report, expectedCode string) (int, error) {
	checks := []func(types.Report) error{
		func(r types.Report) error { return schemas.Struct(schemas.Report, r) },
		checkCode,
		func(r types.Report) error { return checkExpectedCode(r, expectedCode) },
		checkSectionIDs,
		checkEvidence,
		checkDimensions,
	}
	for _, check := range checks {
		if err := check(r); err != nil {
			return 0, err
		}
	}
	return len(checks), nil
}

func checkCode(r types.Report) error {
	code := r.RIASECCode
	if len(code) != 3 {
		return schemas.Fail(schemas.Report, "riasec_code", "code %q must have three letters", code)
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(riasecLetters, rune(code[i])) {
			return schemas.Fail(schemas.Report, "riasec_code", "code %q has invalid letter %q", code, code[i])
		}
		if strings.IndexByte(code, code[i]) != i {
			return schemas.Fail(schemas.Report, "riasec_code", "code %q repeats letter %q", code, code[i])
		}
	}
	return nil
}

func checkExpectedCode(r types.Report, expected string) error {
	if expected == "" || r.RIASECCode == expected {
		return nil
	}
	return schemas.Fail(schemas.Report, "riasec_code", "report code %q does not match profile code %q", r.RIASECCode, expected)
}

func checkSectionIDs(r types.Report) error {
	seen := make(map[string]bool, len(r.Sections))
	for i, s := range r.Sections {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return schemas.Fail(schemas.Report, fmt.Sprintf("sections[%d].id", i), "section id is blank")
		}
		if seen[id] {
			return schemas.Fail(schemas.Report, fmt.Sprintf("sections[%d].id", i), "duplicate section id %q", id)
		}
		seen[id] = true
	}
	return nil
}

func checkEvidence(r types.Report) error {
	for i, s := range r.Sections {
		if strings.TrimSpace(s.Content) == "" {
			return schemas.Fail(schemas.Report, fmt.Sprintf("sections[%d].content", i), "section %q has no content", s.ID)
		}
		cited := 0
		for _, e := range s.Evidence {
			if strings.TrimSpace(e) != "" {
				cited++
			}
		}
		if cited == 0 {
			return schemas.Fail(schemas.Report, fmt.Sprintf("sections[%d].evidence", i), "section %q cites no evidence", s.ID)
		}
	}
	return nil
}

func checkDimensions(r types.Report) error {
	for i, s := range r.Sections {
		for j, d := range s.Dimensions {
			if !d.Valid() {
				return schemas.Fail(schemas.Report, fmt.Sprintf("sections[%d].dimensions[%d]", i, j), "unknown dimension %q", d)
			}
		}
	}
	for i, p := range r.CareerPaths {
		for j, d := range p.Dimensions {
			if !d.Valid() {
				return schemas.Fail(schemas.Report, fmt.Sprintf("career_paths[%d].dimensions[%d]", i, j), "unknown dimension %q", d)
			}
		}
	}
	return nil
}
