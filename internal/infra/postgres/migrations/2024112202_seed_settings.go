package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `INSERT INTO quiz_settings (id, num_questions, randomize)
				VALUES (1, 10, true) ON CONFLICT (id) DO NOTHING`)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DELETE FROM quiz_settings WHERE id = 1`)
			return err
		},
	)
}
