package repository // repository holds data access logic for domain entities

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides the ErrNoRows sentinel
	"errors"       // errors.Is for sentinel comparisons

	"github.com/jmoiron/sqlx" // sqlx hydrates rows into tagged structs

	"github.com/iliyamo/flight-booking/internal/model"
)

const templateFlightColumns = `id, origin, destination, dep_time, arr_time`

// TemplateFlightRepo provides methods to create and retrieve recurring
// route definitions.  Deleting a template removes every flight scheduled
// from it.
type TemplateFlightRepo struct {
	db *sqlx.DB // db is the underlying database connection
}

// NewTemplateFlightRepo constructs a TemplateFlightRepo with the given DB handle.
func NewTemplateFlightRepo(db *sqlx.DB) *TemplateFlightRepo {
	return &TemplateFlightRepo{db: db}
}

// Create inserts a new template flight.  After insert the ID field of the
// template is set.
func (r *TemplateFlightRepo) Create(ctx context.Context, t *model.TemplateFlight) error {
	const q = `INSERT INTO template_flights (origin, destination, dep_time, arr_time) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.Origin, t.Destination, t.DepTime, t.ArrTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// GetByID retrieves a template flight by its ID.  It returns ErrNotFound
// when no row is found.
func (r *TemplateFlightRepo) GetByID(ctx context.Context, id int64) (*model.TemplateFlight, error) {
	var t model.TemplateFlight
	err := r.db.GetContext(ctx, &t, `SELECT `+templateFlightColumns+` FROM template_flights WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List returns all template flights ordered by id.
func (r *TemplateFlightRepo) List(ctx context.Context) ([]model.TemplateFlight, error) {
	out := make([]model.TemplateFlight, 0)
	if err := r.db.SelectContext(ctx, &out, `SELECT `+templateFlightColumns+` FROM template_flights ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites route and schedule fields.  Returns ErrNotFound when
// the template does not exist.
func (r *TemplateFlightRepo) Update(ctx context.Context, t *model.TemplateFlight) error {
	const q = `UPDATE template_flights SET origin = ?, destination = ?, dep_time = ?, arr_time = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, t.Origin, t.Destination, t.DepTime, t.ArrTime, t.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes the template together with its flights, their
// reservations and tickets (cascade).  It reports whether a row was removed.
func (r *TemplateFlightRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, `DELETE FROM template_flights WHERE id = ?`, id)
}
