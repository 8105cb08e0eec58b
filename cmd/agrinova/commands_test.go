package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecommendCommand(t *testing.T) {
	out, err := run(t, "recommend", "--soil", "Clay", "--temperature", "25", "--humidity", "75")
	require.NoError(t, err)
	assert.Contains(t, out, "Corn")
	assert.Contains(t, out, "Rice")
	assert.NotContains(t, out, "Wheat")

	out, err = run(t, "recommend", "--soil", "Sandy", "--temperature", "5", "--humidity", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "Lettuce")
}

func TestRecommendCommandScored(t *testing.T) {
	out, err := run(t, "recommend", "--soil", "Loamy", "--temperature", "20", "--humidity", "60", "--scored")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "CROP"))
	assert.Contains(t, out, "Wheat")
}

func TestRecommendCommandRequiresFlags(t *testing.T) {
	_, err := run(t, "recommend", "--soil", "Loamy")
	assert.Error(t, err)

	_, err = run(t, "recommend", "--soil", "Loamy", "--temperature", "NaN", "--humidity", "60", "--json")
	assert.Error(t, err)
}

func TestAskCommand(t *testing.T) {
	out, err := run(t, "ask", "what", "about", "maize?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Corn grows best"))

	out, err = run(t, "ask", "--persona", "regional", "desert", "crops")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Based on your query, crops that grow well in arid regions"))

	_, err = run(t, "ask", "--persona", "martian", "wheat")
	assert.Error(t, err)
}

func TestProductsCommand(t *testing.T) {
	out, err := run(t, "products", "--category", "Fruits", "--sort", "price-high")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "Premium Dates"), strings.Index(out, "Fresh Strawberries"))
	assert.Contains(t, out, "page 1/1, 2 products")
}

func TestProductsCommandExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grains.xlsx")
	out, err := run(t, "products", "--category", "Grains", "--export", path)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 3 products")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestSensorsCommand(t *testing.T) {
	out, err := run(t, "sensors", "--seed", "3", "--ticks", "2")
	require.NoError(t, err)
	for _, id := range []string{"sensor-001", "sensor-002", "sensor-003", "sensor-004"} {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "avg soil")
}
