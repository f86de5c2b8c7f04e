package reference

import (
	"context"
	"errors"
	"time"

	"nutrition-engine/internal/pkg/common"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const foodColumns = `food_code, food_name, calories, protein_g, carbs_g, fat_g,
	fiber_g, sugar_g, saturated_fat_g, sodium_mg, cholesterol_mg, potassium_mg,
	calcium_mg, iron_mg, vitamin_a_iu, vitamin_c_mg,
	reference_weight_grams, reference_weight_description`

// PostgresStore 以 PostgreSQL + pg_trgm 實作的參考食品資料庫
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore 創建 PostgreSQL 參考資料庫
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema 建立資料表與 trigram 索引（冪等）
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE EXTENSION IF NOT EXISTS pg_trgm;

		CREATE TABLE IF NOT EXISTS foods (
			food_code                    TEXT PRIMARY KEY,
			food_name                    TEXT NOT NULL,
			calories                     DOUBLE PRECISION NOT NULL DEFAULT 0,
			protein_g                    DOUBLE PRECISION NOT NULL DEFAULT 0,
			carbs_g                      DOUBLE PRECISION NOT NULL DEFAULT 0,
			fat_g                        DOUBLE PRECISION NOT NULL DEFAULT 0,
			fiber_g                      DOUBLE PRECISION NOT NULL DEFAULT 0,
			sugar_g                      DOUBLE PRECISION NOT NULL DEFAULT 0,
			saturated_fat_g              DOUBLE PRECISION NOT NULL DEFAULT 0,
			sodium_mg                    DOUBLE PRECISION NOT NULL DEFAULT 0,
			cholesterol_mg               DOUBLE PRECISION NOT NULL DEFAULT 0,
			potassium_mg                 DOUBLE PRECISION NOT NULL DEFAULT 0,
			calcium_mg                   DOUBLE PRECISION NOT NULL DEFAULT 0,
			iron_mg                      DOUBLE PRECISION NOT NULL DEFAULT 0,
			vitamin_a_iu                 DOUBLE PRECISION NOT NULL DEFAULT 0,
			vitamin_c_mg                 DOUBLE PRECISION NOT NULL DEFAULT 0,
			reference_weight_grams       DOUBLE PRECISION,
			reference_weight_description TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_foods_name_trgm
			ON foods USING gin (LOWER(food_name) gin_trgm_ops);
		CREATE INDEX IF NOT EXISTS idx_foods_name_lower
			ON foods (LOWER(food_name));
	`)
	return err
}

// FindByCode 以食品代碼查詢
func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*common.FoodRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+foodColumns+`
		FROM foods
		WHERE food_code = $1
	`, code)
	return scanFood(row)
}

// FindByExactName 以名稱做不分大小寫的精確查詢
func (s *PostgresStore) FindByExactName(ctx context.Context, name string) (*common.FoodRecord, error) {
	start := time.Now()
	row := s.db.QueryRow(ctx, `
		SELECT `+foodColumns+`
		FROM foods
		WHERE LOWER(food_name) = LOWER($1)
		ORDER BY food_code
		LIMIT 1
	`, name)
	rec, err := scanFood(row)
	common.LogStoreQuery("exact_name", time.Since(start), ignoreNotFound(err))
	return rec, err
}

// FindByNameContaining 查詢名稱包含指定片語的任一食品，偏好較短（較通用）的名稱
func (s *PostgresStore) FindByNameContaining(ctx context.Context, token string) (*common.FoodRecord, error) {
	start := time.Now()
	row := s.db.QueryRow(ctx, `
		SELECT `+foodColumns+`
		FROM foods
		WHERE food_name ILIKE '%' || $1 || '%'
		ORDER BY length(food_name), food_code
		LIMIT 1
	`, token)
	rec, err := scanFood(row)
	common.LogStoreQuery("name_containing", time.Since(start), ignoreNotFound(err))
	return rec, err
}

// SearchSimilar 以 pg_trgm 相似度搜尋
func (s *PostgresStore) SearchSimilar(ctx context.Context, query string, threshold float64, limit int) ([]SimilarFood, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx, `
		SELECT `+foodColumns+`, similarity(LOWER(food_name), LOWER($1)) AS sim
		FROM foods
		WHERE similarity(LOWER(food_name), LOWER($1)) >= $2
		ORDER BY sim DESC, food_code
		LIMIT $3
	`, query, threshold, limit)
	if err != nil {
		common.LogStoreQuery("similarity", time.Since(start), err)
		return nil, err
	}
	defer rows.Close()

	var results []SimilarFood
	for rows.Next() {
		var (
			rec common.FoodRecord
			sim float64
		)
		if err := scanFoodFields(rows, &rec, &sim); err != nil {
			return nil, err
		}
		results = append(results, SimilarFood{Record: rec, Similarity: sim})
	}
	common.LogStoreQuery("similarity", time.Since(start), rows.Err())
	return results, rows.Err()
}

// scanFood 掃描單筆食品紀錄
func scanFood(row pgx.Row) (*common.FoodRecord, error) {
	var rec common.FoodRecord
	if err := scanFoodFields(row, &rec, nil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrFoodNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// scanFoodFields 掃描共用欄位序，sim 非 nil 時額外掃描相似度
func scanFoodFields(row pgx.Row, rec *common.FoodRecord, sim *float64) error {
	var refDesc *string
	dest := []interface{}{
		&rec.FoodCode, &rec.FoodName,
		&rec.Calories, &rec.ProteinG, &rec.CarbsG, &rec.FatG,
		&rec.FiberG, &rec.SugarG, &rec.SaturatedFatG,
		&rec.SodiumMg, &rec.CholesterolMg, &rec.PotassiumMg,
		&rec.CalciumMg, &rec.IronMg, &rec.VitaminAIU, &rec.VitaminCMg,
		&rec.RefWeightGrams, &refDesc,
	}
	if sim != nil {
		dest = append(dest, sim)
	}
	if err := row.Scan(dest...); err != nil {
		return err
	}
	if refDesc != nil {
		rec.RefWeightDesc = *refDesc
	}
	return nil
}

// ignoreNotFound 查無資料不算查詢失敗
func ignoreNotFound(err error) error {
	if errors.Is(err, common.ErrFoodNotFound) || errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}
