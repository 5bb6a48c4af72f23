package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/builtingen/internal/ir"
)

// Read errors.
var (
	ErrNoImports           = errors.New("no snapshots imported")
	ErrImportNotFound      = errors.New("import not found")
	ErrFingerprintMismatch = errors.New("stored snapshot does not match its fingerprint")
)

const selectImports = `
	SELECT seq, id, fingerprint, source, snapshot_version, generator_version, builtin_count, generation
	FROM imports
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImport(row rowScanner) (Import, error) {
	var imp Import
	err := row.Scan(
		&imp.Seq,
		&imp.ID,
		&imp.Fingerprint,
		&imp.Source,
		&imp.SnapshotVersion,
		&imp.GeneratorVersion,
		&imp.BuiltinCount,
		&imp.Generation,
	)
	return imp, err
}

// Imports returns every import, oldest first (ORDER BY seq ASC).
//
// Returns an empty slice (not nil) if nothing has been imported.
func (s *Store) Imports(ctx context.Context) ([]Import, error) {
	rows, err := s.db.QueryContext(ctx, selectImports+`
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	imports := []Import{}
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imports: %w", err)
	}
	return imports, nil
}

// LatestImport returns the most recently imported or re-imported snapshot's
// import (highest generation), or ErrNoImports.
func (s *Store) LatestImport(ctx context.Context) (Import, error) {
	imp, err := scanImport(s.db.QueryRowContext(ctx, selectImports+`
		ORDER BY generation DESC, seq DESC
		LIMIT 1
	`))
	if errors.Is(err, sql.ErrNoRows) {
		return Import{}, ErrNoImports
	}
	if err != nil {
		return Import{}, fmt.Errorf("query latest import: %w", err)
	}
	return imp, nil
}

// LoadLatest loads the most recently imported snapshot.
func (s *Store) LoadLatest(ctx context.Context) (*ir.Snapshot, Import, error) {
	imp, err := s.LatestImport(ctx)
	if err != nil {
		return nil, Import{}, err
	}
	snap, err := s.LoadSnapshot(ctx, imp.ID)
	if err != nil {
		return nil, Import{}, err
	}
	return snap, imp, nil
}

// LoadSnapshot reads the snapshot stored under importID.
//
// Builtins come back in id order and languages in declaration order, so the
// result fingerprints identically to the snapshot that was saved. A
// mismatch is reported as ErrFingerprintMismatch.
func (s *Store) LoadSnapshot(ctx context.Context, importID string) (*ir.Snapshot, error) {
	imp, err := scanImport(s.db.QueryRowContext(ctx, selectImports+`
		WHERE id = ?
	`, importID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load snapshot %s: %w", importID, ErrImportNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", importID, err)
	}

	snap := &ir.Snapshot{}
	if snap.Languages, err = s.readLanguages(ctx, importID); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", importID, err)
	}
	if snap.Builtins, err = s.readBuiltins(ctx, importID); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", importID, err)
	}

	fingerprint, err := snap.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", importID, err)
	}
	if fingerprint != imp.Fingerprint {
		return nil, fmt.Errorf("load snapshot %s: %w: stored %s, computed %s",
			importID, ErrFingerprintMismatch, imp.Fingerprint, fingerprint)
	}
	return snap, nil
}

func (s *Store) readLanguages(ctx context.Context, importID string) ([]ir.LanguageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM languages
		WHERE import_id = ?
		ORDER BY position ASC
	`, importID)
	if err != nil {
		return nil, fmt.Errorf("query languages: %w", err)
	}
	defer rows.Close()

	langs := []ir.LanguageRecord{}
	for rows.Next() {
		var l ir.LanguageRecord
		if err := rows.Scan(&l.Name); err != nil {
			return nil, fmt.Errorf("scan language: %w", err)
		}
		langs = append(langs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate languages: %w", err)
	}
	return langs, nil
}

func (s *Store) readBuiltins(ctx context.Context, importID string) ([]ir.Builtin, error) {
	classes, err := s.readClasses(ctx, importID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, attributes, atomic, language, header, features, category
		FROM builtins
		WHERE import_id = ?
		ORDER BY id ASC
	`, importID)
	if err != nil {
		return nil, fmt.Errorf("query builtins: %w", err)
	}
	defer rows.Close()

	builtins := []ir.Builtin{}
	for rows.Next() {
		var (
			r        ir.BuiltinRecord
			category string
		)
		err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Type,
			&r.Attributes,
			&r.Atomic,
			&r.Language,
			&r.Header,
			&r.Features,
			&category,
		)
		if err != nil {
			return nil, fmt.Errorf("scan builtin: %w", err)
		}
		c, err := ir.ParseCategory(category)
		if err != nil {
			return nil, fmt.Errorf("builtin %s: %w", r.Name, err)
		}
		r.SubclassOf = ir.NewClassSet(classes[r.ID]...)
		builtins = append(builtins, ir.Builtin{Record: r, Category: c})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builtins: %w", err)
	}
	return builtins, nil
}

// readClasses returns builtin id → class names for one import.
func (s *Store) readClasses(ctx context.Context, importID string) (map[int64][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT builtin_id, class FROM builtin_classes
		WHERE import_id = ?
		ORDER BY builtin_id ASC, class COLLATE BINARY ASC
	`, importID)
	if err != nil {
		return nil, fmt.Errorf("query builtin classes: %w", err)
	}
	defer rows.Close()

	classes := make(map[int64][]string)
	for rows.Next() {
		var (
			id    int64
			class string
		)
		if err := rows.Scan(&id, &class); err != nil {
			return nil, fmt.Errorf("scan builtin class: %w", err)
		}
		classes[id] = append(classes[id], class)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builtin classes: %w", err)
	}
	return classes, nil
}
