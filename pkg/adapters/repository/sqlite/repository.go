package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS biosites (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT,
		description TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_biosites_slug ON biosites(slug);

	CREATE TABLE IF NOT EXISTS links (
		id TEXT PRIMARY KEY,
		biosite_id TEXT NOT NULL,
		label TEXT,
		url TEXT,
		icon TEXT,
		link_type TEXT,
		image TEXT,
		color TEXT,
		is_active INTEGER DEFAULT 1,
		order_index INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(biosite_id) REFERENCES biosites(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_links_biosite_id ON links(biosite_id);

	CREATE TABLE IF NOT EXISTS sections (
		id TEXT PRIMARY KEY,
		biosite_id TEXT NOT NULL,
		titulo TEXT,
		order_index INTEGER,
		is_selected INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(biosite_id) REFERENCES biosites(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_sections_biosite_id ON sections(biosite_id);
	`
	_, err := db.Exec(query)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// --- Biosites ---

const biositeColumns = `id, slug, title, description, created_at, updated_at`

func scanBiosite(row scanner) (*domain.Biosite, error) {
	var b domain.Biosite
	if err := row.Scan(&b.ID, &b.Slug, &b.Title, &b.Description, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *SQLiteRepository) CreateBiosite(ctx context.Context, biosite *domain.Biosite) error {
	query := `INSERT INTO biosites (id, slug, title, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, biosite.ID, biosite.Slug, biosite.Title, biosite.Description, biosite.CreatedAt, biosite.UpdatedAt)
	return errors.Wrap(err, "insert biosite")
}

func (r *SQLiteRepository) GetBiosite(ctx context.Context, id string) (*domain.Biosite, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+biositeColumns+` FROM biosites WHERE id = ?`, id)
	b, err := scanBiosite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, errors.Wrap(err, "get biosite")
}

func (r *SQLiteRepository) GetBiositeBySlug(ctx context.Context, slug string) (*domain.Biosite, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+biositeColumns+` FROM biosites WHERE slug = ?`, slug)
	b, err := scanBiosite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, errors.Wrap(err, "get biosite by slug")
}

func (r *SQLiteRepository) UpdateBiosite(ctx context.Context, biosite *domain.Biosite) error {
	query := `UPDATE biosites SET slug = ?, title = ?, description = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, biosite.Slug, biosite.Title, biosite.Description, biosite.UpdatedAt, biosite.ID)
	return errors.Wrap(err, "update biosite")
}

// DeleteBiosite removes the biosite together with its links and sections.
func (r *SQLiteRepository) DeleteBiosite(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM links WHERE biosite_id = ?`,
		`DELETE FROM sections WHERE biosite_id = ?`,
		`DELETE FROM biosites WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return errors.Wrap(err, "delete biosite")
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListBiosites(ctx context.Context, limit, offset int, filters map[string]interface{}) ([]domain.Biosite, error) {
	query := `SELECT ` + biositeColumns + ` FROM biosites`
	args := []interface{}{}

	if search, ok := filters["search"].(string); ok && search != "" {
		query += " WHERE title LIKE ? OR slug LIKE ?"
		args = append(args, "%"+search+"%", "%"+search+"%")
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list biosites")
	}
	defer rows.Close()

	var biosites []domain.Biosite
	for rows.Next() {
		b, err := scanBiosite(rows)
		if err != nil {
			return nil, err
		}
		biosites = append(biosites, *b)
	}
	return biosites, rows.Err()
}

// --- Links ---

const linkColumns = `id, biosite_id, label, url, icon, link_type, image, color, is_active, order_index, created_at, updated_at`

func scanLink(row scanner) (*domain.Link, error) {
	var l domain.Link
	err := row.Scan(&l.ID, &l.BiositeID, &l.Label, &l.URL, &l.Icon, &l.LinkType, &l.Image, &l.Color,
		&l.IsActive, &l.OrderIndex, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *SQLiteRepository) CreateLink(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (` + linkColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, link.ID, link.BiositeID, link.Label, link.URL, link.Icon, link.LinkType,
		link.Image, link.Color, link.IsActive, link.OrderIndex, link.CreatedAt, link.UpdatedAt)
	return errors.Wrap(err, "insert link")
}

func (r *SQLiteRepository) GetLink(ctx context.Context, id string) (*domain.Link, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE id = ?`, id)
	l, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, errors.Wrap(err, "get link")
}

func (r *SQLiteRepository) UpdateLink(ctx context.Context, link *domain.Link) error {
	query := `UPDATE links SET label = ?, url = ?, icon = ?, link_type = ?, image = ?, color = ?, is_active = ?,
			  order_index = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, link.Label, link.URL, link.Icon, link.LinkType, link.Image, link.Color,
		link.IsActive, link.OrderIndex, link.UpdatedAt, link.ID)
	return errors.Wrap(err, "update link")
}

func (r *SQLiteRepository) DeleteLink(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id)
	return errors.Wrap(err, "delete link")
}

// ListLinks returns the links of a biosite ordered by order_index.
func (r *SQLiteRepository) ListLinks(ctx context.Context, biositeID string) ([]domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE biosite_id = ? ORDER BY order_index ASC, created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, biositeID)
	if err != nil {
		return nil, errors.Wrap(err, "list links")
	}
	defer rows.Close()

	links := []domain.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (r *SQLiteRepository) UpdateLinkOrders(ctx context.Context, batch []domain.OrderUpdate) error {
	return r.updateOrders(ctx, "links", batch)
}

// --- Sections ---

const sectionColumns = `id, biosite_id, titulo, order_index, is_selected, created_at, updated_at`

func scanSection(row scanner) (*domain.Section, error) {
	var s domain.Section
	var order sql.NullInt64
	if err := row.Scan(&s.ID, &s.BiositeID, &s.Title, &order, &s.IsSelected, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if order.Valid {
		s = s.WithOrder(int(order.Int64))
	}
	return &s, nil
}

func nullOrder(s *domain.Section) sql.NullInt64 {
	i, ok := s.Order()
	return sql.NullInt64{Int64: int64(i), Valid: ok}
}

func (r *SQLiteRepository) CreateSection(ctx context.Context, section *domain.Section) error {
	query := `INSERT INTO sections (` + sectionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, section.ID, section.BiositeID, section.Title, nullOrder(section),
		section.IsSelected, section.CreatedAt, section.UpdatedAt)
	return errors.Wrap(err, "insert section")
}

func (r *SQLiteRepository) GetSection(ctx context.Context, id string) (*domain.Section, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sectionColumns+` FROM sections WHERE id = ?`, id)
	s, err := scanSection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, errors.Wrap(err, "get section")
}

func (r *SQLiteRepository) UpdateSection(ctx context.Context, section *domain.Section) error {
	query := `UPDATE sections SET titulo = ?, order_index = ?, is_selected = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, section.Title, nullOrder(section), section.IsSelected, section.UpdatedAt, section.ID)
	return errors.Wrap(err, "update section")
}

func (r *SQLiteRepository) DeleteSection(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, id)
	return errors.Wrap(err, "delete section")
}

// ListSections returns raw section records, duplicates included. Unordered
// sections come after ordered ones.
func (r *SQLiteRepository) ListSections(ctx context.Context, biositeID string) ([]domain.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE biosite_id = ?
			  ORDER BY order_index IS NULL, order_index ASC, created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, biositeID)
	if err != nil {
		return nil, errors.Wrap(err, "list sections")
	}
	defer rows.Close()

	sections := []domain.Section{}
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, *s)
	}
	return sections, rows.Err()
}

func (r *SQLiteRepository) UpdateSectionOrders(ctx context.Context, batch []domain.OrderUpdate) error {
	return r.updateOrders(ctx, "sections", batch)
}

// updateOrders writes a whole reorder batch in one transaction. A missing id
// rolls the batch back.
func (r *SQLiteRepository) updateOrders(ctx context.Context, table string, batch []domain.OrderUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE `+table+` SET order_index = ? WHERE id = ?`)
	if err != nil {
		return errors.Wrap(err, "prepare order update")
	}
	defer stmt.Close()

	for _, u := range batch {
		res, err := stmt.ExecContext(ctx, u.OrderIndex, u.ID)
		if err != nil {
			return errors.Wrapf(err, "update %s order", table)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "rows affected")
		}
		if n == 0 {
			return errors.Wrapf(domain.NotFound(strings.TrimSuffix(table, "s")), "id %s", u.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit order batch")
}

// Dump returns every link and section of a biosite, inactive links included.
func (r *SQLiteRepository) Dump(ctx context.Context, biositeID string) (*domain.Snapshot, error) {
	links, err := r.ListLinks(ctx, biositeID)
	if err != nil {
		return nil, err
	}
	sections, err := r.ListSections(ctx, biositeID)
	if err != nil {
		return nil, err
	}
	return &domain.Snapshot{Links: links, Sections: sections}, nil
}

// Ensure interface compliance
var _ ports.BiositeRepository = (*SQLiteRepository)(nil)
