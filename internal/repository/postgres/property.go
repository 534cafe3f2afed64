package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gharkhoj/gharkhoj/internal/models"
	"github.com/gharkhoj/gharkhoj/internal/repository"
)

const defaultSearchLimit = 200

// propertyColumns is the canonical select list; every scan in this file
// uses it so adding a column is a one-place change.
const propertyColumns = `
	id, landlord_id, title, description, city, area, address,
	latitude, longitude, price, deposit, maintenance_fee,
	room_type, status, is_vacant, available_from,
	furnished, internet, parking, water_available, pets_allowed,
	meals_included, common_area, locker_available,
	bathroom_type, beds_per_room, gender_preference, curfew_time, house_rules,
	created_at, updated_at`

// qualifiedPropertyColumns prefixes every column in propertyColumns with a
// table alias, for selects that join properties against another table.
func qualifiedPropertyColumns(alias string) string {
	cols := strings.Split(propertyColumns, ",")
	for i, c := range cols {
		cols[i] = " " + alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ",")
}

type PropertyStore struct {
	pool *pgxpool.Pool
}

func NewPropertyStore(pool *pgxpool.Pool) *PropertyStore {
	return &PropertyStore{pool: pool}
}

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID, &p.LandlordID, &p.Title, &p.Description, &p.City, &p.Area, &p.Address,
		&p.Latitude, &p.Longitude, &p.Price, &p.Deposit, &p.Maintenance,
		&p.RoomType, &p.Status, &p.IsVacant, &p.AvailableFrom,
		&p.Furnished, &p.Internet, &p.Parking, &p.WaterAvailable, &p.PetsAllowed,
		&p.MealsIncluded, &p.CommonArea, &p.LockerAvailable,
		&p.BathroomType, &p.BedsPerRoom, &p.GenderPref, &p.CurfewTime, &p.HouseRules,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PropertyStore) Create(ctx context.Context, p *models.Property) (*models.Property, error) {
	query := `
		INSERT INTO properties (
			landlord_id, title, description, city, area, address,
			latitude, longitude, price, deposit, maintenance_fee,
			room_type, is_vacant, available_from,
			furnished, internet, parking, water_available, pets_allowed,
			meals_included, common_area, locker_available,
			bathroom_type, beds_per_room, gender_preference, curfew_time, house_rules
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
		RETURNING` + propertyColumns

	row := s.pool.QueryRow(ctx, query,
		p.LandlordID, p.Title, p.Description, p.City, p.Area, p.Address,
		p.Latitude, p.Longitude, p.Price, p.Deposit, p.Maintenance,
		p.RoomType, p.IsVacant, p.AvailableFrom,
		p.Furnished, p.Internet, p.Parking, p.WaterAvailable, p.PetsAllowed,
		p.MealsIncluded, p.CommonArea, p.LockerAvailable,
		p.BathroomType, p.BedsPerRoom, p.GenderPref, p.CurfewTime, p.HouseRules,
	)
	created, err := scanProperty(row)
	if err != nil {
		return nil, fmt.Errorf("insert property: %w", err)
	}
	return created, nil
}

func (s *PropertyStore) GetByID(ctx context.Context, propertyID uuid.UUID) (*models.Property, error) {
	query := `SELECT` + propertyColumns + ` FROM properties WHERE id = $1`

	p, err := scanProperty(s.pool.QueryRow(ctx, query, propertyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get property: %w", err)
	}
	if err := s.attachImages(ctx, []*models.Property{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// Update writes landlord-editable fields. Ownership lives in the WHERE
// clause, so a non-owner write cannot succeed no matter what the client
// claimed; status is deliberately untouched here (moderation owns it).
func (s *PropertyStore) Update(ctx context.Context, landlordID uuid.UUID, p *models.Property) (*models.Property, error) {
	query := `
		UPDATE properties SET
			title = $3, description = $4, city = $5, area = $6, address = $7,
			latitude = $8, longitude = $9, price = $10, deposit = $11, maintenance_fee = $12,
			room_type = $13, is_vacant = $14, available_from = $15,
			furnished = $16, internet = $17, parking = $18, water_available = $19,
			pets_allowed = $20, meals_included = $21, common_area = $22, locker_available = $23,
			bathroom_type = $24, beds_per_room = $25, gender_preference = $26,
			curfew_time = $27, house_rules = $28,
			updated_at = now()
		WHERE id = $1 AND landlord_id = $2
		RETURNING` + propertyColumns

	row := s.pool.QueryRow(ctx, query,
		p.ID, landlordID,
		p.Title, p.Description, p.City, p.Area, p.Address,
		p.Latitude, p.Longitude, p.Price, p.Deposit, p.Maintenance,
		p.RoomType, p.IsVacant, p.AvailableFrom,
		p.Furnished, p.Internet, p.Parking, p.WaterAvailable,
		p.PetsAllowed, p.MealsIncluded, p.CommonArea, p.LockerAvailable,
		p.BathroomType, p.BedsPerRoom, p.GenderPref,
		p.CurfewTime, p.HouseRules,
	)
	updated, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotOwner
		}
		return nil, fmt.Errorf("update property: %w", err)
	}
	return updated, nil
}

func (s *PropertyStore) SetVacancy(ctx context.Context, landlordID, propertyID uuid.UUID, isVacant bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE properties SET is_vacant = $3, updated_at = now()
		 WHERE id = $1 AND landlord_id = $2`,
		propertyID, landlordID, isVacant,
	)
	if err != nil {
		return fmt.Errorf("set vacancy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotOwner
	}
	return nil
}

func (s *PropertyStore) Delete(ctx context.Context, callerID uuid.UUID, propertyID uuid.UUID, admin bool) error {
	var tagQuery string
	args := []any{propertyID}
	if admin {
		tagQuery = `DELETE FROM properties WHERE id = $1`
	} else {
		tagQuery = `DELETE FROM properties WHERE id = $1 AND landlord_id = $2`
		args = append(args, callerID)
	}

	tag, err := s.pool.Exec(ctx, tagQuery, args...)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotOwner
	}
	return nil
}

func (s *PropertyStore) ListByLandlord(ctx context.Context, landlordID uuid.UUID) ([]models.Property, error) {
	query := `SELECT` + propertyColumns + `
		FROM properties
		WHERE landlord_id = $1
		ORDER BY created_at DESC`

	return s.queryList(ctx, query, landlordID)
}

// Search returns the public catalog: approved and vacant, every provided
// filter pushed into SQL (including the free-text query over
// title/city/area), keyset-paginated on the newest sort.
func (s *PropertyStore) Search(ctx context.Context, params repository.SearchParams) ([]models.Property, error) {
	var (
		conds = []string{`status = 'approved'`, `is_vacant = true`}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if params.City != "" {
		conds = append(conds, `city ILIKE `+arg("%"+params.City+"%"))
	}
	if params.RoomType != "" {
		conds = append(conds, `room_type = `+arg(params.RoomType))
	}
	if params.Query != "" {
		q := "%" + params.Query + "%"
		conds = append(conds, fmt.Sprintf(`(title ILIKE %s OR city ILIKE %s OR area ILIKE %s)`,
			arg(q), arg(q), arg(q)))
	}
	var order string
	switch params.SortBy {
	case "price_asc":
		order = `price ASC, created_at DESC`
	case "price_desc":
		order = `price DESC, created_at DESC`
	default:
		order = `created_at DESC`
		// The cursor keys on created_at, which only lines up with the
		// newest ordering; price-sorted requests never carry one.
		if !params.Before.IsZero() {
			conds = append(conds, `created_at < `+arg(params.Before))
		}
	}

	limit := params.Limit
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}

	query := `SELECT` + propertyColumns + `
		FROM properties
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY ` + order + `
		LIMIT ` + arg(limit)

	return s.queryList(ctx, query, args...)
}

// ListPending is the moderation queue, oldest first: first submitted,
// first reviewed.
func (s *PropertyStore) ListPending(ctx context.Context) ([]models.Property, error) {
	query := `SELECT` + propertyColumns + `
		FROM properties
		WHERE status = 'pending'
		ORDER BY created_at ASC`

	return s.queryList(ctx, query)
}

func (s *PropertyStore) SetStatus(ctx context.Context, propertyID uuid.UUID, status models.PropertyStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE properties SET status = $2, updated_at = now() WHERE id = $1`,
		propertyID, status,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set status: property not found")
	}
	return nil
}

func (s *PropertyStore) queryList(ctx context.Context, query string, args ...any) ([]models.Property, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	properties := make([]models.Property, 0)
	refs := make([]*models.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		properties = append(properties, *p)
		refs = append(refs, &properties[len(properties)-1])
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}

	if err := s.attachImages(ctx, refs); err != nil {
		return nil, err
	}
	return properties, nil
}

// attachImages loads gallery rows for a whole result set in one query
// (ANY on the id set, never per-row round trips) and distributes them in
// display order.
func (s *PropertyStore) attachImages(ctx context.Context, properties []*models.Property) error {
	if len(properties) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(properties))
	byID := make(map[uuid.UUID]*models.Property, len(properties))
	for _, p := range properties {
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, property_id, image_url, display_order, created_at
		FROM property_images
		WHERE property_id = ANY($1)
		ORDER BY property_id, display_order ASC, created_at ASC`, ids)
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.PropertyImage
		if err := rows.Scan(&img.ID, &img.PropertyID, &img.ImageURL, &img.DisplayOrder, &img.CreatedAt); err != nil {
			return fmt.Errorf("scan image: %w", err)
		}
		if p, ok := byID[img.PropertyID]; ok {
			p.Images = append(p.Images, img)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate images: %w", err)
	}
	return nil
}
