package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

func TestStores(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(t.TempDir()),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load("artifacts/metrics.json")
			require.Error(t, err)
			assert.True(t, IsNotFound(err))

			var ioErr *errors.ArtifactIOError
			require.True(t, errors.As(err, &ioErr))
			assert.Equal(t, "load", ioErr.Op)

			require.NoError(t, store.Save("artifacts/metrics.json", []byte("v1")))
			require.NoError(t, store.Save("artifacts/metrics.json", []byte("v2")))

			got, err := store.Load("artifacts/metrics.json")
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), got)
		})
	}
}

func TestFileStoreWritesUnderRoot(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)

	require.NoError(t, store.Save("models/scaler.pkl", []byte{1, 2, 3}))

	data, err := os.ReadFile(filepath.Join(root, "models", "scaler.pkl"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	entries, err := os.ReadDir(filepath.Join(root, "models"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, store.Save("k", value))
	value[0] = 'z'

	got, err := store.Load("k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, []string{"k"}, store.Keys())
}

func TestJSONHelpersAreByteStable(t *testing.T) {
	store := NewMemoryStore()
	importance := map[string]float64{"RM": 0.5, "LSTAT": 0.3, "CRIM": 0.2}

	require.NoError(t, SaveJSON(store, "a.json", importance))
	require.NoError(t, SaveJSON(store, "b.json", importance))

	a, _ := store.Load("a.json")
	b, _ := store.Load("b.json")
	assert.Equal(t, a, b)
	assert.Equal(t, "{\n    \"CRIM\": 0.2,\n    \"LSTAT\": 0.3,\n    \"RM\": 0.5\n}\n", string(a))

	var decoded map[string]float64
	require.NoError(t, LoadJSON(store, "a.json", &decoded))
	assert.Equal(t, importance, decoded)
}

func TestLoadJSONDecodeError(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save("bad.json", []byte("{")))

	var v map[string]float64
	err := LoadJSON(store, "bad.json", &v)
	var ioErr *errors.ArtifactIOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "decode", ioErr.Op)
}

func TestGobHelpers(t *testing.T) {
	type params struct {
		Mean  []float64
		Scale []float64
	}
	store := NewMemoryStore()
	in := params{Mean: []float64{1, 2}, Scale: []float64{3, 4}}
	require.NoError(t, SaveGob(store, "scaler", &in))

	var out params
	require.NoError(t, LoadGob(store, "scaler", &out))
	assert.Equal(t, in, out)
}
