package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/builtingen/internal/ir"
)

// Import describes one stored snapshot.
type Import struct {
	ID               string `json:"id"`
	Seq              int64  `json:"seq"`
	Fingerprint      string `json:"fingerprint"`
	Source           string `json:"source"`
	SnapshotVersion  string `json:"snapshot_version"`
	GeneratorVersion string `json:"generator_version"`
	BuiltinCount     int    `json:"builtin_count"`
	Generation       int64  `json:"generation"` // bumped on every import, including re-imports
}

// SaveSnapshot stores snap as a new import and returns it.
//
// Imports are idempotent by fingerprint: if an identical snapshot is
// already stored, its import is returned with inserted=false and only its
// generation is bumped, making it the latest import again. Everything
// happens in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap *ir.Snapshot, source string) (imp Import, inserted bool, err error) {
	if snap == nil {
		return Import{}, false, errors.New("save snapshot: snapshot is nil")
	}
	fingerprint, err := snap.Fingerprint()
	if err != nil {
		return Import{}, false, fmt.Errorf("save snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Import{}, false, fmt.Errorf("save snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var generation int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(generation), 0) + 1 FROM imports
	`).Scan(&generation); err != nil {
		return Import{}, false, fmt.Errorf("save snapshot: next generation: %w", err)
	}

	existing, err := scanImport(tx.QueryRowContext(ctx, selectImports+`
		WHERE fingerprint = ?
	`, fingerprint))
	switch {
	case err == nil:
		if err := s.reactivate(ctx, tx, &existing, generation); err != nil {
			return Import{}, false, fmt.Errorf("save snapshot: %w", err)
		}
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return Import{}, false, fmt.Errorf("save snapshot: select existing: %w", err)
	}

	imp = Import{
		ID:               s.ids.Generate(),
		Fingerprint:      fingerprint,
		Source:           source,
		SnapshotVersion:  ir.SnapshotVersion,
		GeneratorVersion: ir.GeneratorVersion,
		BuiltinCount:     len(snap.Builtins),
		Generation:       generation,
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO imports
		(id, fingerprint, source, snapshot_version, generator_version, builtin_count, generation)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		imp.ID,
		imp.Fingerprint,
		imp.Source,
		imp.SnapshotVersion,
		imp.GeneratorVersion,
		imp.BuiltinCount,
		imp.Generation,
	)
	if err != nil {
		return Import{}, false, fmt.Errorf("save snapshot: insert import: %w", err)
	}
	if imp.Seq, err = result.LastInsertId(); err != nil {
		return Import{}, false, fmt.Errorf("save snapshot: last insert id: %w", err)
	}

	if err := writeLanguages(ctx, tx, imp.ID, snap.Languages); err != nil {
		return Import{}, false, fmt.Errorf("save snapshot: %w", err)
	}
	if err := writeBuiltins(ctx, tx, imp.ID, snap.Builtins); err != nil {
		return Import{}, false, fmt.Errorf("save snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Import{}, false, fmt.Errorf("save snapshot: commit: %w", err)
	}

	s.logger.Debug("stored snapshot",
		zap.String("import_id", imp.ID),
		zap.Int64("seq", imp.Seq),
		zap.String("fingerprint", imp.Fingerprint),
		zap.Int("builtins", imp.BuiltinCount),
	)
	return imp, true, nil
}

// reactivate makes an already stored import the latest one.
func (s *Store) reactivate(ctx context.Context, tx *sql.Tx, imp *Import, generation int64) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE imports SET generation = ? WHERE id = ?
	`, generation, imp.ID); err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	imp.Generation = generation

	s.logger.Debug("reactivated snapshot",
		zap.String("import_id", imp.ID),
		zap.Int64("generation", generation),
	)
	return nil
}

func writeLanguages(ctx context.Context, tx *sql.Tx, importID string, langs []ir.LanguageRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO languages (import_id, position, name) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare languages: %w", err)
	}
	defer stmt.Close()

	for i, l := range langs {
		if _, err := stmt.ExecContext(ctx, importID, i, l.Name); err != nil {
			return fmt.Errorf("insert language %s: %w", l.Name, err)
		}
	}
	return nil
}

func writeBuiltins(ctx context.Context, tx *sql.Tx, importID string, builtins []ir.Builtin) error {
	builtinStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO builtins
		(import_id, id, name, type, attributes, atomic, language, header, features, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare builtins: %w", err)
	}
	defer builtinStmt.Close()

	classStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO builtin_classes (import_id, builtin_id, class) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare builtin classes: %w", err)
	}
	defer classStmt.Close()

	for _, b := range builtins {
		r := b.Record
		_, err := builtinStmt.ExecContext(ctx,
			importID,
			r.ID,
			r.Name,
			r.Type,
			r.Attributes,
			r.Atomic,
			r.Language,
			r.Header,
			r.Features,
			b.Category.String(),
		)
		if err != nil {
			return fmt.Errorf("insert builtin %s: %w", r.Name, err)
		}
		for _, class := range r.SubclassOf {
			if _, err := classStmt.ExecContext(ctx, importID, r.ID, class); err != nil {
				return fmt.Errorf("insert class %s of builtin %s: %w", class, r.Name, err)
			}
		}
	}
	return nil
}
