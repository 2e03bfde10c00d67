// Package entity_repo provides the PostgreSQL entity repository: the
// aggregation core that fans entity writes out to the per-type field
// handlers and merges per-table value reads back into ordered field
// bags.
package entity_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain"
	"facet/internal/domain/attribute"
	"facet/internal/domain/attributeset"
	"facet/internal/domain/entity"
	"facet/internal/domain/fieldtype"
	"facet/internal/domain/locale"
	"facet/internal/infrastructure/storage/postgres"
	"facet/internal/infrastructure/storage/postgres/schema_repo"
)

var entityCols = []string{
	"entities.id", "entities.entity_type_id", "entities.attribute_set_id",
	"entities.created_at", "entities.updated_at",
}

// SchemaLookup serves attribute and set definitions from memory on the
// query path. Satisfied by cache.SchemaCache; nil hits on every lookup
// fall through to the repositories.
type SchemaLookup interface {
	Attribute(code string) *attribute.Attribute
	AttributeSet(code string) *attributeset.AttributeSet
}

// Repo implements domain.EntityRepository.
type Repo struct {
	tm          *postgres.TxManager
	registry    *fieldtype.Registry
	attrs       *schema_repo.AttributeRepo
	sets        *schema_repo.AttributeSetRepo
	entityTypes *schema_repo.EntityTypeRepo
	locales     locale.Resolver
	schema      SchemaLookup

	// stores covers every distinct value table for the unioned read.
	stores []*postgres.ValueStore
}

// NewRepo creates the entity repository. One value store is opened per
// distinct table so aggregation issues one query per table, not per
// attribute. schema may be nil; every code lookup then goes to the
// repositories.
func NewRepo(
	tm *postgres.TxManager,
	registry *fieldtype.Registry,
	attrs *schema_repo.AttributeRepo,
	sets *schema_repo.AttributeSetRepo,
	entityTypes *schema_repo.EntityTypeRepo,
	locales locale.Resolver,
	schema SchemaLookup,
) *Repo {
	stores := make([]*postgres.ValueStore, 0, len(registry.Tables()))
	for _, table := range registry.Tables() {
		stores = append(stores, postgres.NewValueStore(tm, table))
	}
	return &Repo{
		tm:          tm,
		registry:    registry,
		attrs:       attrs,
		sets:        sets,
		entityTypes: entityTypes,
		locales:     locales,
		schema:      schema,
		stores:      stores,
	}
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (r *Repo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// LookupType probes an entity by id and returns the code of its entity
// type. Backs relation validation, including the allowed-entity-type
// restriction.
func (r *Repo) LookupType(ctx context.Context, entityID id.ID) (string, bool, error) {
	sql, args, err := r.Builder().
		Select("entity_type_id").
		From("entities").
		Where(squirrel.Eq{"id": entityID}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build query: %w", err)
	}

	var typeID id.ID
	err = r.tm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&typeID)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup entity type: %w", err)
	}

	et, err := r.entityTypes.Fetch(ctx, typeID)
	if err != nil {
		return "", false, err
	}
	return et.Code, true, nil
}

// Create resolves the set, seeds defaults for absent attributes,
// validates every value and writes the entity row plus its field values
// in one transaction.
func (r *Repo) Create(ctx context.Context, p domain.EntityParams) (*entity.Entity, error) {
	et, err := r.entityTypes.FetchByCode(ctx, p.EntityType)
	if err != nil {
		return nil, err
	}
	set, err := r.sets.FetchByCode(ctx, p.AttributeSet)
	if err != nil {
		return nil, err
	}
	if set.EntityTypeID != et.ID {
		return nil, apperror.NewBadRequest(
			fmt.Sprintf("attribute set %q does not belong to entity type %q", p.AttributeSet, p.EntityType))
	}

	attrs, err := r.setAttributes(ctx, set)
	if err != nil {
		return nil, err
	}

	ops, err := r.planWrites(ctx, attrs, p.Fields, p.Locale, true, id.Nil())
	if err != nil {
		return nil, err
	}

	e := &entity.Entity{
		ID:             id.New(),
		EntityTypeID:   et.ID,
		AttributeSetID: set.ID,
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	err = r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.insertRow(ctx, e); err != nil {
			return err
		}
		for _, op := range ops {
			for _, localeID := range op.scopes.order {
				if err := op.binding.Handler.Insert(ctx, e.ID, op.attr, localeID, op.scopes.values[localeID]); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.Fetch(ctx, e.ID, p.Locale)
}

// Update rewrites the field values present in the payload; omitted
// fields keep their stored values. Each touched (attribute, locale)
// scope is replaced delete-then-insert by its handler.
func (r *Repo) Update(ctx context.Context, entityID id.ID, p domain.EntityParams) (*entity.Entity, error) {
	e, err := r.fetchRow(ctx, entityID)
	if err != nil {
		return nil, err
	}
	set, err := r.sets.Fetch(ctx, e.AttributeSetID)
	if err != nil {
		return nil, err
	}
	attrs, err := r.setAttributes(ctx, set)
	if err != nil {
		return nil, err
	}

	ops, err := r.planWrites(ctx, attrs, p.Fields, p.Locale, false, entityID)
	if err != nil {
		return nil, err
	}

	err = r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, op := range ops {
			if op.scopes.empty() {
				// Explicit empty payload clears the field everywhere.
				if err := op.binding.Handler.DeleteField(ctx, entityID, op.attr.ID); err != nil {
					return err
				}
				continue
			}
			for _, localeID := range op.scopes.order {
				if err := op.binding.Handler.Update(ctx, entityID, op.attr, localeID, op.scopes.values[localeID]); err != nil {
					return err
				}
			}
		}
		return r.touchRow(ctx, entityID)
	})
	if err != nil {
		return nil, err
	}

	return r.Fetch(ctx, entityID, p.Locale)
}

// Delete removes the entity row and its values across every value table.
func (r *Repo) Delete(ctx context.Context, entityID id.ID) error {
	if _, err := r.fetchRow(ctx, entityID); err != nil {
		return err
	}

	err := r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, store := range r.stores {
			if err := store.DeleteByEntity(ctx, entityID); err != nil {
				return err
			}
		}
		return r.deleteRow(ctx, entityID)
	})
	if err != nil {
		return err
	}

	return nil
}

// Fetch loads an entity with its assembled field bag. An empty
// localeCode presents localized attributes as locale-keyed maps.
func (r *Repo) Fetch(ctx context.Context, entityID id.ID, localeCode string) (*entity.Entity, error) {
	e, err := r.fetchRow(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if err := r.resolveFields(ctx, []*entity.Entity{e}, localeCode); err != nil {
		return nil, err
	}
	return e, nil
}

// Get lists entities with filtering, sorting and pagination, assembling
// field bags for the returned page.
func (r *Repo) Get(ctx context.Context, q domain.ListQuery, localeCode string) (domain.ListResult[*entity.Entity], error) {
	result := domain.ListResult[*entity.Entity]{
		Limit:  q.Limit,
		Offset: q.Offset,
	}

	query := r.Builder().
		Select(entityCols...).
		From("entities")

	query, err := r.applyFilters(ctx, query, q.Filter)
	if err != nil {
		return result, err
	}
	// Field joins can duplicate entity rows (multi-valued and localized
	// attributes); grouping by the key collapses them.
	query = query.GroupBy("entities.id")

	countSQL, countArgs, err := r.Builder().
		Select("COUNT(*)").
		FromSelect(query, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	querier := r.tm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count entities: %w", err)
	}

	query, err = r.applySort(ctx, query, q.Sort)
	if err != nil {
		return result, err
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list entities: %w", err)
	}

	if err := r.resolveFields(ctx, result.Items, localeCode); err != nil {
		return result, err
	}
	return result, nil
}

// --- Cascades ---

// DeleteByAttribute removes every stored value of an attribute, fanning
// over the registered types' handlers.
func (r *Repo) DeleteByAttribute(ctx context.Context, attributeID id.ID) error {
	return r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, store := range r.stores {
			if err := store.DeleteByAttribute(ctx, attributeID); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteByAttributeSet removes every entity of a set together with all
// its values.
func (r *Repo) DeleteByAttributeSet(ctx context.Context, attributeSetID id.ID) error {
	return r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, store := range r.stores {
			if err := store.DeleteByAttributeSet(ctx, attributeSetID); err != nil {
				return err
			}
		}
		return r.execDelete(ctx, squirrel.Eq{"attribute_set_id": attributeSetID})
	})
}

// DeleteByEntityType removes every entity of a type together with all
// its values.
func (r *Repo) DeleteByEntityType(ctx context.Context, entityTypeID id.ID) error {
	return r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, store := range r.stores {
			if err := store.DeleteByEntityType(ctx, entityTypeID); err != nil {
				return err
			}
		}
		return r.execDelete(ctx, squirrel.Eq{"entity_type_id": entityTypeID})
	})
}

// --- Row access ---

func (r *Repo) insertRow(ctx context.Context, e *entity.Entity) error {
	sql, args, err := r.Builder().
		Insert("entities").
		Columns("id", "entity_type_id", "attribute_set_id", "created_at", "updated_at").
		Values(e.ID, e.EntityTypeID, e.AttributeSetID, e.CreatedAt, e.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build entity insert: %w", err)
	}
	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func (r *Repo) fetchRow(ctx context.Context, entityID id.ID) (*entity.Entity, error) {
	sql, args, err := r.Builder().
		Select(entityCols...).
		From("entities").
		Where(squirrel.Eq{"entities.id": entityID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	e := &entity.Entity{}
	if err := pgxscan.Get(ctx, r.tm.GetQuerier(ctx), e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("entity", entityID.String())
		}
		return nil, fmt.Errorf("fetch entity: %w", err)
	}
	return e, nil
}

func (r *Repo) touchRow(ctx context.Context, entityID id.ID) error {
	sql, args, err := r.Builder().
		Update("entities").
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": entityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build entity touch: %w", err)
	}
	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("touch entity: %w", err)
	}
	return nil
}

func (r *Repo) deleteRow(ctx context.Context, entityID id.ID) error {
	return r.execDelete(ctx, squirrel.Eq{"id": entityID})
}

func (r *Repo) execDelete(ctx context.Context, where squirrel.Sqlizer) error {
	sql, args, err := r.Builder().
		Delete("entities").
		Where(where).
		ToSql()
	if err != nil {
		return fmt.Errorf("build entities delete: %w", err)
	}
	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete entities: %w", err)
	}
	return nil
}

// --- Aggregation ---

// resolveFields assembles field bags for a batch of entities: one read
// per value table, unioned and grouped in application code.
func (r *Repo) resolveFields(ctx context.Context, entities []*entity.Entity, localeCode string) error {
	if len(entities) == 0 {
		return nil
	}

	requested := -1
	localeID := locale.None
	if localeCode != "" {
		loc, err := r.locales.Resolve(ctx, localeCode)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewBadRequest(fmt.Sprintf("unknown locale %q", localeCode))
			}
			return err
		}
		requested = loc.ID
		localeID = loc.ID
	}

	ids := make([]id.ID, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}

	var rows []fieldtype.ValueRow
	for _, store := range r.stores {
		tableRows, err := store.ReadByEntities(ctx, ids, requested)
		if err != nil {
			return err
		}
		rows = append(rows, tableRows...)
	}

	// Attributes and bindings per set; entities of different sets can
	// share one page.
	attrsBySet := make(map[id.ID][]*attribute.Attribute)
	for _, e := range entities {
		if _, done := attrsBySet[e.AttributeSetID]; done {
			continue
		}
		set, err := r.sets.Fetch(ctx, e.AttributeSetID)
		if err != nil {
			return err
		}
		attrs, err := r.setAttributes(ctx, set)
		if err != nil {
			return err
		}
		attrsBySet[e.AttributeSetID] = attrs
	}

	bindings := make(map[string]fieldtype.Binding)
	for _, key := range r.registry.Keys() {
		binding, err := r.registry.Get(key)
		if err != nil {
			return err
		}
		bindings[string(key)] = binding
	}

	localeCodes := make(map[int]string)
	all, err := r.locales.All(ctx)
	if err != nil {
		return err
	}
	for _, loc := range all {
		localeCodes[loc.ID] = loc.Code
	}

	rowsBySet := make(map[id.ID][]fieldtype.ValueRow)
	setByEntity := make(map[id.ID]id.ID, len(entities))
	for _, e := range entities {
		setByEntity[e.ID] = e.AttributeSetID
	}
	for _, row := range rows {
		setID, ok := setByEntity[row.EntityID]
		if !ok {
			continue
		}
		rowsBySet[setID] = append(rowsBySet[setID], row)
	}

	fieldsByEntity := make(map[id.ID]*entity.Fields)
	for setID, setRows := range rowsBySet {
		assembled, err := assembleFields(ctx, setRows, assembleInput{
			Attributes:  attrsBySet[setID],
			Bindings:    bindings,
			LocaleCodes: localeCodes,
			LocaleID:    localeID,
		})
		if err != nil {
			return err
		}
		for entityID, fields := range assembled {
			fieldsByEntity[entityID] = fields
		}
	}

	for _, e := range entities {
		if fields, ok := fieldsByEntity[e.ID]; ok {
			e.Fields = fields
		} else {
			e.Fields = entity.NewFields()
		}
	}
	return nil
}

// setAttributes resolves the full attribute definitions of a set in
// membership order.
func (r *Repo) setAttributes(ctx context.Context, set *attributeset.AttributeSet) ([]*attribute.Attribute, error) {
	byID, err := r.attrs.FetchByIDs(ctx, set.AttributeIDs())
	if err != nil {
		return nil, err
	}

	attrs := make([]*attribute.Attribute, 0, len(set.Attributes))
	for _, member := range set.Attributes {
		if a, ok := byID[member.AttributeID]; ok {
			attrs = append(attrs, a)
		}
	}
	return attrs, nil
}

