package questionbank

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/evalbench/evalbench/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const astronomyCSV = `question,choice_a,choice_b,choice_c,choice_d,answer
What is the largest planet in the solar system?,Earth,Jupiter,Saturn,Mars,B
Which planet is closest to the sun?,Venus,Earth,Mercury,Mars,C
What force keeps planets in orbit?,Magnetism,Gravity,Friction,Inertia,B
What is the name of our galaxy?,Andromeda,Whirlpool,Milky Way,Sombrero,2
`

const ethicsCSV = `question,choice_a,choice_b,choice_c,choice_d,answer
Which concept refers to duties owed to stakeholders?,Egoism,Responsibility,Relativism,Hedonism,B
`

func writeBank(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeBank(t, map[string]string{
		"astronomy.csv":       astronomyCSV,
		"business_ethics.csv": ethicsCSV,
		"notes.txt":           "ignored",
	})

	bank, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"astronomy", "business_ethics"}, bank.Subjects())
	assert.True(t, bank.Has("astronomy"))
	assert.False(t, bank.Has("alchemy"))
	assert.Equal(t, 4, bank.Size("astronomy"))
	assert.Equal(t, 1, bank.Size("business_ethics"))
}

func TestLoadAnswerFormats(t *testing.T) {
	dir := writeBank(t, map[string]string{"astronomy.csv": astronomyCSV})
	bank, err := Load(dir)
	require.NoError(t, err)

	// Last row uses a numeric answer index; both formats resolve to choices.
	questions, err := bank.Sample("astronomy", 4)
	require.NoError(t, err)
	for _, q := range questions {
		require.NoError(t, q.Validate())
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})

	t.Run("no subject files", func(t *testing.T) {
		_, err := Load(t.TempDir())
		require.Error(t, err)
	})

	t.Run("bad header", func(t *testing.T) {
		dir := writeBank(t, map[string]string{
			"astronomy.csv": "q,a,b,c,d,ans\nsomething,1,2,3,4,A\n",
		})
		_, err := Load(dir)
		require.ErrorContains(t, err, "column")
	})

	t.Run("bad answer", func(t *testing.T) {
		dir := writeBank(t, map[string]string{
			"astronomy.csv": "question,choice_a,choice_b,choice_c,choice_d,answer\nsomething,1,2,3,4,E\n",
		})
		_, err := Load(dir)
		require.ErrorContains(t, err, "answer")
	})
}

func TestSampleDeterministic(t *testing.T) {
	dir := writeBank(t, map[string]string{"astronomy.csv": astronomyCSV})
	bank, err := Load(dir)
	require.NoError(t, err)

	first, err := bank.Sample("astronomy", 3)
	require.NoError(t, err)
	second, err := bank.Sample("astronomy", 3)
	require.NoError(t, err)

	require.Equal(t, first, second, "sampling must be deterministic for identical inputs")

	// No duplicates within a sample.
	seen := map[int]bool{}
	for _, q := range first {
		require.False(t, seen[q.Index], "question %d sampled twice", q.Index)
		seen[q.Index] = true
	}
}

func TestSampleErrors(t *testing.T) {
	dir := writeBank(t, map[string]string{"astronomy.csv": astronomyCSV})
	bank, err := Load(dir)
	require.NoError(t, err)

	_, err = bank.Sample("alchemy", 1)
	require.True(t, models.IsKind(err, models.KindInvalidRequest))

	_, err = bank.Sample("astronomy", 5)
	require.True(t, models.IsKind(err, models.KindInvalidRequest),
		"oversampling must fail explicitly, not clamp")

	_, err = bank.Sample("astronomy", 0)
	require.True(t, models.IsKind(err, models.KindInvalidRequest))
}
