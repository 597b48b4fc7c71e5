package kb

import (
	"github.com/frame-dx-server/internal/domain"
)

// SeedRoot is the root frame of the built-in demo knowledge base.
const SeedRoot = "Disease"

// SeedDefinitions returns the built-in demo knowledge base used when no frame
// file is configured.
func SeedDefinitions() []domain.FrameDefinition {
	return []domain.FrameDefinition{
		{ID: SeedRoot},
		{
			ID:     "Flu",
			Parent: SeedRoot,
			Findings: map[string]float64{
				"fever":    2.0,
				"cough":    1.5,
				"headache": 1.0,
				"myalgia":  1.0,
			},
		},
		{
			ID:     "Common Cold",
			Parent: SeedRoot,
			Findings: map[string]float64{
				"cough":       2.0,
				"sore throat": 1.5,
				"runny nose":  2.0,
				"sneezing":    1.0,
			},
			Rules: map[string][]string{
				string(domain.MustNotHave): {"high_fever"},
			},
		},
		{
			ID:     "Pneumonia",
			Parent: SeedRoot,
			Findings: map[string]float64{
				"fever":               2.0,
				"productive cough":    2.0,
				"shortness of breath": 2.0,
				"chest pain":          1.5,
			},
		},
		{
			ID:     "Nephrotic Syndrome",
			Parent: SeedRoot,
			Findings: map[string]float64{
				"edema":       2.5,
				"proteinuria": 3.0,
			},
			Rules: map[string][]string{
				string(domain.MustNotHave): {"proteinuria_absent"},
			},
		},
		{
			ID:     "Hepatitis",
			Parent: SeedRoot,
			Findings: map[string]float64{
				"jaundice":         2.0,
				"elevated ALT/AST": 2.5,
			},
		},
		{
			ID:     "Alcoholic Hepatitis",
			Parent: "Hepatitis",
			Findings: map[string]float64{
				"alcohol_history": 3.0,
				"jaundice":        1.5,
			},
		},
	}
}

// Seed builds a store from the built-in demo knowledge base.
func Seed() (*Store, error) {
	return NewStore(SeedRoot, SeedDefinitions())
}
