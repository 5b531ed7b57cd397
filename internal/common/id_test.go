package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeProcedureIDStable(t *testing.T) {
	a := MakeProcedureID("bebauungsplan nr. 12/2024 batteriespeicher", "12062500",
		[]string{"BPLAN_AUFSTELLUNG", "https://example.test/vorlage/9"})
	b := MakeProcedureID("bebauungsplan nr. 12/2024 batteriespeicher", "12062500",
		[]string{"BPLAN_AUFSTELLUNG", "https://example.test/vorlage/9"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestMakeProcedureIDDiscriminates(t *testing.T) {
	base := MakeProcedureID("titel", "12062500", []string{"BPLAN_AUFSTELLUNG"})

	assert.NotEqual(t, base, MakeProcedureID("anderer titel", "12062500", []string{"BPLAN_AUFSTELLUNG"}))
	assert.NotEqual(t, base, MakeProcedureID("titel", "12060020", []string{"BPLAN_AUFSTELLUNG"}))
	assert.NotEqual(t, base, MakeProcedureID("titel", "12062500", []string{"BPLAN_SATZUNG"}))
	// Token boundaries matter: ["ab","c"] and ["a","bc"] are distinct keys.
	assert.NotEqual(t,
		MakeProcedureID("titel", "12062500", []string{"ab", "c"}),
		MakeProcedureID("titel", "12062500", []string{"a", "bc"}))
}

func TestNewIDUnique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
