package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/grovekit/grove/internal/content"
)

// sqliteSession implements Session over the shared database handle.
// Statements are write-through; Commit and Refresh are boundary markers.
type sqliteSession struct {
	db     *sql.DB
	closed bool
}

func (s *sqliteSession) Exists(ctx context.Context, path content.Path) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM nodes WHERE path = ?`, path.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, WrapStorageError(path, "exists query", err)
	}
	return true, nil
}

func (s *sqliteSession) GetNode(ctx context.Context, path content.Path) (content.Node, error) {
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT kind FROM nodes WHERE path = ?`, path.String()).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Node{}, NewNotFoundError(path)
	}
	if err != nil {
		return content.Node{}, WrapStorageError(path, "node query", err)
	}
	return content.Node{Path: path, Kind: kind}, nil
}

func (s *sqliteSession) Children(ctx context.Context, path content.Path) ([]content.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, kind FROM nodes
		WHERE parent_path = ?
		ORDER BY name ASC
	`, path.String())
	if err != nil {
		return nil, WrapStorageError(path, "children query", err)
	}
	defer rows.Close()

	var children []content.Node
	for rows.Next() {
		var childPath, kind string
		if err := rows.Scan(&childPath, &kind); err != nil {
			return nil, WrapStorageError(path, "children scan", err)
		}
		children = append(children, content.Node{Path: content.Path(childPath), Kind: kind})
	}
	if err := rows.Err(); err != nil {
		return nil, WrapStorageError(path, "children rows", err)
	}
	return children, nil
}

func (s *sqliteSession) Properties(ctx context.Context, path content.Path) (*content.PropertyMap, error) {
	if _, err := s.GetNode(ctx, path); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, type, plural, value FROM properties
		WHERE node_path = ?
		ORDER BY position ASC
	`, path.String())
	if err != nil {
		return nil, WrapStorageError(path, "properties query", err)
	}
	defer rows.Close()

	props := content.NewPropertyMap()
	for rows.Next() {
		var key, typ, raw string
		var plural int
		if err := rows.Scan(&key, &typ, &plural, &raw); err != nil {
			return nil, WrapStorageError(path, "properties scan", err)
		}
		v, err := decodeValue(typ, plural != 0, raw)
		if err != nil {
			return nil, WrapStorageError(path, "decode property "+key, err)
		}
		props.Set(key, v)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapStorageError(path, "properties rows", err)
	}
	return props, nil
}

// CheckPrivileges resolves each privilege nearest-ancestor-wins, walking
// from path up to the root. A privilege with no explicit entry anywhere on
// the walk is granted. An explicit "all" entry at a path decides any
// privilege that has no entry of its own there.
func (s *sqliteSession) CheckPrivileges(ctx context.Context, path content.Path, privileges ...string) (bool, error) {
	for _, priv := range expandPrivileges(privileges) {
		allowed, err := s.resolvePrivilege(ctx, path, priv)
		if err != nil {
			return false, err
		}
		if !allowed {
			return false, nil
		}
	}
	return true, nil
}

func (s *sqliteSession) resolvePrivilege(ctx context.Context, path content.Path, priv string) (bool, error) {
	for p := path; ; p = p.Parent() {
		for _, name := range []string{priv, PrivAll} {
			var allowed int
			err := s.db.QueryRowContext(ctx,
				`SELECT allowed FROM acl WHERE path = ? AND privilege = ?`,
				p.String(), name).Scan(&allowed)
			if err == nil {
				return allowed != 0, nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return false, WrapStorageError(path, "acl query", err)
			}
		}
		if p == "/" || p.IsEmpty() {
			return true, nil
		}
	}
}

func (s *sqliteSession) Commit(ctx context.Context) error {
	// Write-through backend: nothing pending to flush.
	return nil
}

func (s *sqliteSession) Refresh(ctx context.Context, discard bool) error {
	// Write-through backend: nothing pending to discard.
	return nil
}

func (s *sqliteSession) Close() error {
	s.closed = true
	return nil
}
