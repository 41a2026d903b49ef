package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/doctree/internal/model"
)

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"Title=Catalog", "Note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Title": "Catalog", "Note": "a=b"}, values)

	_, err = parseAssignments([]string{"Title"})
	assert.Error(t, err)
	_, err = parseAssignments([]string{"=x"})
	assert.Error(t, err)
}

func TestParseFields(t *testing.T) {
	defs, err := parseFields([]string{"Title:text:required", "Price:decimal"})
	require.NoError(t, err)
	assert.Equal(t, []model.FieldDefinition{
		{Name: "Title", Kind: model.FieldText, Required: true},
		{Name: "Price", Kind: model.FieldDecimal},
	}, defs)

	for _, bad := range []string{"Title", "Title:text:optional", ":text", "a:b:c:d"} {
		_, err = parseFields([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestCommands(t *testing.T) {
	t.Setenv("DOCTREE_DB_DSN", filepath.Join(t.TempDir(), "doctree.db"))
	t.Setenv("DOCTREE_LOG_LEVEL", "warn")
	configDir = t.TempDir()

	run := func(args ...string) {
		t.Helper()
		rootCmd.SetArgs(append(args, "--config", configDir))
		require.NoError(t, rootCmd.Execute(), args)
	}

	run("db", "migrate")
	run("site", "create", "-n", "main", "-c", "en-US", "--cultures", "de-DE")
	run("type", "register", "-n", "shop.product", "-f", "Title:text", "-f", "Price:decimal")
	run("node", "create", "-s", "main", "-p", "/", "-t", "shop.product", "-n", "Products", "--set", "Title=Catalog")
	run("node", "update", "-s", "main", "-p", "/Products", "--set", "Price=12.5")
	run("node", "translate", "-s", "main", "-p", "/Products", "-c", "en-US", "--to", "de-DE", "-n", "Produkte")
	run("jobs", "once", "path_consistency")

	app, err := openApp()
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	n, err := app.Tree.SelectSingleNode(ctx, "main", "/Products", "de-DE", false)
	require.NoError(t, err)
	assert.Equal(t, "Produkte", n.Name())
	price, _ := n.GetValue("Price")
	assert.EqualValues(t, 12.5, price)

	events, err := app.Store.ListEventLogs(ctx, n.ID(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
