// Command seed provisions a demo product schema and bulk-loads entities
// for local development and load testing. Safe to re-run: seeding is
// skipped when the demo entity type already exists.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain/attribute"
	"facet/internal/domain/attributeset"
	"facet/internal/domain/entitytype"
	"facet/internal/domain/fieldtype"
	"facet/internal/infrastructure/rules"
	"facet/internal/infrastructure/storage/postgres"
	"facet/internal/infrastructure/storage/postgres/field_repo"
	"facet/internal/infrastructure/storage/postgres/schema_repo"
	"facet/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	celEngine, err := rules.NewCELEngine()
	if err != nil {
		log.Fatalw("failed to initialize rules engine", "error", err)
	}

	registry := field_repo.NewDefaultRegistry(field_repo.Deps{
		TxManager: txManager,
		Rules:     celEngine,
	})

	attrRepo := schema_repo.NewAttributeRepo(txManager, registry, nil)
	entityTypeRepo := schema_repo.NewEntityTypeRepo(txManager, registry, nil)
	setRepo := schema_repo.NewAttributeSetRepo(txManager, registry, attrRepo, entityTypeRepo, nil)

	if _, err := entityTypeRepo.FetchByCode(ctx, "product"); err == nil {
		log.Info("demo schema already present, nothing to do")
		return
	} else if !apperror.IsNotFound(err) {
		log.Fatalw("failed to probe demo schema", "error", err)
	}

	schema, err := seedSchema(ctx, entityTypeRepo, attrRepo, setRepo)
	if err != nil {
		log.Fatalw("failed to seed demo schema", "error", err)
	}
	log.Infow("demo schema created", "entity_type", "product", "attribute_set", schema.set.Code)

	count := 1000
	if raw := os.Getenv("SEED_ENTITIES"); raw != "" {
		count, err = strconv.Atoi(raw)
		if err != nil || count < 0 {
			log.Fatalw("invalid SEED_ENTITIES value", "value", raw)
		}
	}

	loaded, err := seedEntities(ctx, txManager, schema, count)
	if err != nil {
		log.Fatalw("failed to load demo entities", "error", err)
	}
	log.Infow("seeding completed", "entities", loaded)
}

// demoSchema holds the created definitions the entity loader writes
// values against.
type demoSchema struct {
	entityType *entitytype.EntityType
	set        *attributeset.AttributeSet

	name     *attribute.Attribute
	sku      *attribute.Attribute
	price    *attribute.Attribute
	stock    *attribute.Attribute
	released *attribute.Attribute
	color    *attribute.Attribute
}

func seedSchema(
	ctx context.Context,
	entityTypes *schema_repo.EntityTypeRepo,
	attrs *schema_repo.AttributeRepo,
	sets *schema_repo.AttributeSetRepo,
) (*demoSchema, error) {
	et, err := entityTypes.Create(ctx, &entitytype.EntityType{Code: "product", Name: "Product"})
	if err != nil {
		return nil, err
	}

	s := &demoSchema{entityType: et}

	definitions := []struct {
		target **attribute.Attribute
		attr   attribute.Attribute
	}{
		{&s.name, attribute.Attribute{Code: "name", FieldType: string(fieldtype.Text), Required: true, Filterable: true}},
		{&s.sku, attribute.Attribute{Code: "sku", FieldType: string(fieldtype.Text), Unique: true, Filterable: true}},
		{&s.price, attribute.Attribute{Code: "price", FieldType: string(fieldtype.Decimal), Filterable: true}},
		{&s.stock, attribute.Attribute{Code: "stock", FieldType: string(fieldtype.Integer), Filterable: true}},
		{&s.released, attribute.Attribute{Code: "released", FieldType: string(fieldtype.Datetime), Filterable: true}},
		{&s.color, attribute.Attribute{
			Code:      "color",
			FieldType: string(fieldtype.Select),
			Options: []attribute.Option{
				{Value: "red", Label: "Red", SortOrder: 0},
				{Value: "green", Label: "Green", SortOrder: 1},
				{Value: "blue", Label: "Blue", SortOrder: 2},
			},
		}},
	}

	members := make([]attributeset.SetAttribute, 0, len(definitions))
	for i, def := range definitions {
		created, err := attrs.Create(ctx, &def.attr)
		if err != nil {
			return nil, fmt.Errorf("create attribute %s: %w", def.attr.Code, err)
		}
		*def.target = created
		members = append(members, attributeset.SetAttribute{AttributeID: created.ID, SortOrder: i})
	}

	s.set, err = sets.Create(ctx, &attributeset.AttributeSet{
		Code:         "general_product",
		Name:         "General product",
		EntityTypeID: et.ID,
		Attributes:   members,
	})
	if err != nil {
		return nil, fmt.Errorf("create attribute set: %w", err)
	}
	return s, nil
}

var entityCopyColumns = []string{"id", "entity_type_id", "attribute_set_id", "created_at", "updated_at"}
var valueCopyColumns = []string{"entity_id", "attribute_id", "locale_id", "sort_order", "value"}

// seedEntities bulk-loads count entities with plausible field values.
// Rows go through COPY in one transaction, bypassing per-entity write
// validation; the generated values respect the schema by construction.
func seedEntities(ctx context.Context, tm *postgres.TxManager, s *demoSchema, count int) (int, error) {
	if count == 0 {
		return 0, nil
	}

	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC()

	entityRows := make([][]any, 0, count)
	textRows := make([][]any, 0, count*2)
	integerRows := make([][]any, 0, count)
	decimalRows := make([][]any, 0, count)
	datetimeRows := make([][]any, 0, count)
	refRows := make([][]any, 0, count)

	for i := 0; i < count; i++ {
		entityID := id.New()
		entityRows = append(entityRows, []any{entityID, s.entityType.ID, s.set.ID, now, now})

		textRows = append(textRows,
			[]any{entityID, s.name.ID, 0, 0, fmt.Sprintf("Product %d", i+1)},
			[]any{entityID, s.sku.ID, 0, 0, fmt.Sprintf("SKU-%06d", i+1)},
		)
		integerRows = append(integerRows,
			[]any{entityID, s.stock.ID, 0, 0, int64(rng.Intn(500))})
		decimalRows = append(decimalRows,
			[]any{entityID, s.price.ID, 0, 0, fmt.Sprintf("%d.%02d", rng.Intn(900)+10, rng.Intn(100))})
		datetimeRows = append(datetimeRows,
			[]any{entityID, s.released.ID, 0, 0, now.AddDate(0, 0, -rng.Intn(365))})

		option := s.color.Options[rng.Intn(len(s.color.Options))]
		refRows = append(refRows, []any{entityID, s.color.ID, 0, 0, option.ID})
	}

	loader := postgres.NewBulkLoader(tm)
	err := tm.RunInTransaction(ctx, func(ctx context.Context) error {
		batches := []struct {
			table string
			rows  [][]any
		}{
			{"entities", entityRows},
			{fieldtype.TableText, textRows},
			{fieldtype.TableInteger, integerRows},
			{fieldtype.TableDecimal, decimalRows},
			{fieldtype.TableDatetime, datetimeRows},
			{fieldtype.TableRef, refRows},
		}
		for _, b := range batches {
			columns := valueCopyColumns
			if b.table == "entities" {
				columns = entityCopyColumns
			}
			if _, err := loader.CopySlice(ctx, b.table, columns, b.rows); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
