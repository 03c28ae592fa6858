package mariadb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LegacyFace is one row of the legacy user_faces table.
// The embedding column holds either a single JSON list or a list of lists.
type LegacyFace struct {
	ID          int64
	PlacementID int64
	Name        string
	Embeddings  [][]float64
	CreatedAt   time.Time
}

// LegacyPerson groups all legacy face rows that belong to one placement (staff assignment).
type LegacyPerson struct {
	PlacementID int64
	Name        string
	Embeddings  [][]float64
	CreatedAt   time.Time // earliest row
}

// CountLegacyFaces returns the number of rows in the legacy face table.
func (p *Pool) CountLegacyFaces(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_faces").Scan(&count); err != nil {
		return 0, fmt.Errorf("count legacy faces: %w", err)
	}
	return count, nil
}

// LegacyFaces returns every legacy face row ordered by placement and ID.
// Rows with an unreadable embedding are reported through skipped rather than failing the read.
func (p *Pool) LegacyFaces(ctx context.Context) (faces []LegacyFace, skipped []int64, err error) {
	query := `
		SELECT id, penempatan_id, name, embedding, created_at
		FROM user_faces
		ORDER BY penempatan_id, id
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query legacy faces: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f LegacyFace
		var raw []byte
		if err := rows.Scan(&f.ID, &f.PlacementID, &f.Name, &raw, &f.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		f.Embeddings, err = ParseEmbedding(raw)
		if err != nil {
			skipped = append(skipped, f.ID)
			continue
		}
		faces = append(faces, f)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}

	return faces, skipped, nil
}

// ParseEmbedding decodes a legacy embedding column: [e1, e2, ...] or [[e1, ...], [e1, ...]].
func ParseEmbedding(raw []byte) ([][]float64, error) {
	var single []float64
	if err := json.Unmarshal(raw, &single); err == nil {
		if len(single) == 0 {
			return nil, fmt.Errorf("empty embedding")
		}
		return [][]float64{single}, nil
	}

	var multi [][]float64
	if err := json.Unmarshal(raw, &multi); err != nil {
		return nil, fmt.Errorf("unmarshal embedding: %w", err)
	}

	result := make([][]float64, 0, len(multi))
	for _, e := range multi {
		if len(e) > 0 {
			result = append(result, e)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return result, nil
}

// GroupByPerson merges face rows of the same placement, keeping input order.
// The first non-empty name wins.
func GroupByPerson(faces []LegacyFace) []LegacyPerson {
	index := make(map[int64]int)
	var people []LegacyPerson

	for _, f := range faces {
		i, ok := index[f.PlacementID]
		if !ok {
			index[f.PlacementID] = len(people)
			people = append(people, LegacyPerson{
				PlacementID: f.PlacementID,
				Name:        strings.TrimSpace(f.Name),
				CreatedAt:   f.CreatedAt,
			})
			i = len(people) - 1
		}

		p := &people[i]
		if p.Name == "" {
			p.Name = strings.TrimSpace(f.Name)
		}
		if f.CreatedAt.Before(p.CreatedAt) {
			p.CreatedAt = f.CreatedAt
		}
		p.Embeddings = append(p.Embeddings, f.Embeddings...)
	}

	return people
}
