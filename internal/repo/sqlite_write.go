package repo

import (
	"context"
	"database/sql"

	"github.com/grovekit/grove/internal/content"
)

func (s *sqliteSession) CreateChild(ctx context.Context, parent content.Path, name, kind string, props *content.PropertyMap) error {
	if _, err := s.GetNode(ctx, parent); err != nil {
		return err
	}
	path := parent.Join(name)
	if exists, err := s.Exists(ctx, path); err != nil {
		return err
	} else if exists {
		return NewConflictError(path)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WrapStorageError(path, "begin create", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO nodes (path, parent_path, name, kind) VALUES (?, ?, ?, ?)
	`, path.String(), parent.String(), name, kind); err != nil {
		return WrapStorageError(path, "insert node", err)
	}

	if props != nil {
		if err := writeProperties(ctx, tx, path, props); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return WrapStorageError(path, "commit create", err)
	}
	return nil
}

// Move relocates from and its entire subtree to to, rewriting every
// descendant path inside one transaction. Properties follow their nodes
// via the ON UPDATE CASCADE foreign key.
func (s *sqliteSession) Move(ctx context.Context, from, to content.Path) error {
	if _, err := s.GetNode(ctx, from); err != nil {
		return err
	}
	if exists, err := s.Exists(ctx, to); err != nil {
		return err
	} else if exists {
		return NewConflictError(to)
	}
	if exists, err := s.Exists(ctx, to.Parent()); err != nil {
		return err
	} else if !exists {
		return NewNotFoundError(to.Parent())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WrapStorageError(from, "begin move", err)
	}
	defer tx.Rollback()

	// Rewrite the node itself, then every descendant by prefix.
	if _, err := tx.ExecContext(ctx, `
		UPDATE nodes SET path = ?, parent_path = ?, name = ? WHERE path = ?
	`, to.String(), to.Parent().String(), to.Name(), from.String()); err != nil {
		return WrapStorageError(from, "move node", err)
	}

	// substr is 1-indexed; cutting at len(from)+1 leaves the "/..." tail,
	// which also rewrites parent_path = from to exactly to.
	cut := len(from.String()) + 1
	prefix := from.String() + content.Separator
	if _, err := tx.ExecContext(ctx, `
		UPDATE nodes SET
			path = ? || substr(path, ?),
			parent_path = ? || substr(parent_path, ?)
		WHERE path LIKE ? ESCAPE '\'
	`, to.String(), cut, to.String(), cut, likePattern(prefix)); err != nil {
		return WrapStorageError(from, "move subtree", err)
	}

	if err := tx.Commit(); err != nil {
		return WrapStorageError(from, "commit move", err)
	}
	return nil
}

func (s *sqliteSession) RemoveItem(ctx context.Context, path content.Path) error {
	if _, err := s.GetNode(ctx, path); err != nil {
		return err
	}
	children, err := s.Children(ctx, path)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return NewNotEmptyError(path)
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM nodes WHERE path = ?`, path.String()); err != nil {
		return WrapStorageError(path, "remove node", err)
	}
	return nil
}

func (s *sqliteSession) DeleteSubtree(ctx context.Context, path content.Path) error {
	if _, err := s.GetNode(ctx, path); err != nil {
		return err
	}

	prefix := path.String() + content.Separator
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM nodes WHERE path = ? OR path LIKE ? ESCAPE '\'
	`, path.String(), likePattern(prefix)); err != nil {
		return WrapStorageError(path, "delete subtree", err)
	}
	return nil
}

func (s *sqliteSession) SetProperties(ctx context.Context, path content.Path, props *content.PropertyMap) error {
	if _, err := s.GetNode(ctx, path); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WrapStorageError(path, "begin set properties", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM properties WHERE node_path = ?`, path.String()); err != nil {
		return WrapStorageError(path, "clear properties", err)
	}
	if err := writeProperties(ctx, tx, path, props); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return WrapStorageError(path, "commit set properties", err)
	}
	return nil
}

func writeProperties(ctx context.Context, tx *sql.Tx, path content.Path, props *content.PropertyMap) error {
	for i, key := range props.Keys() {
		v, _ := props.Get(key)
		typ, plural, raw, err := encodeValue(v)
		if err != nil {
			return WrapStorageError(path, "encode property "+key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO properties (node_path, key, type, plural, value, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`, path.String(), key, typ, boolToInt(plural), raw, i); err != nil {
			return WrapStorageError(path, "insert property "+key, err)
		}
	}
	return nil
}

// likePattern escapes LIKE metacharacters in a literal prefix and appends
// the wildcard. Paths may legitimately contain '_' (e.g. folder names).
func likePattern(prefix string) string {
	escaped := ""
	for _, r := range prefix {
		switch r {
		case '%', '_', '\\':
			escaped += "\\" + string(r)
		default:
			escaped += string(r)
		}
	}
	return escaped + "%"
}
