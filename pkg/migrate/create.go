package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/pressly/goose/v3"
)

var nonSnake = regexp.MustCompile(`[^a-z0-9]+`)

// Every new migration runs inside StatementBegin/End so multi-statement DDL
// and plpgsql bodies survive goose's splitter.
var sqlTemplate = template.Must(template.New("bazaar.sql").Parse(`-- +goose Up
-- +goose StatementBegin
SELECT 'up {{.CamelName}}';
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
SELECT 'down {{.CamelName}}';
-- +goose StatementEnd
`))

// CreateSQLMigration writes a timestamped goose SQL migration into dir and
// returns its path. A name already used by another migration is rejected.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	snake := strings.Trim(nonSnake.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if snake == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}
	if existing, err := byName(dir, snake); err != nil {
		return "", err
	} else if len(existing) > 0 {
		return "", fmt.Errorf("migration %q already exists: %s", snake, existing[0])
	}

	if err := goose.CreateWithTemplate(nil, dir, sqlTemplate, snake, "sql"); err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	created, err := byName(dir, snake)
	if err != nil {
		return "", err
	}
	if len(created) == 0 {
		return "", fmt.Errorf("migration %q not found after create", snake)
	}
	return created[len(created)-1], nil
}

func byName(dir, snake string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_"+snake+".sql"))
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}
