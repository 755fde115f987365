package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/taskgate/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20250601000002, down_20250601000002)
}

// up_20250601000002 creates the tasks and submissions tables. Submissions
// reference tasks only by id; the two live in different services.
func up_20250601000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating tasks table...")
	_, err := db.NewCreateTable().
		Model((*models.Task)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`)
	if err != nil {
		return fmt.Errorf("failed to create tasks status index: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating submissions table...")
	_, err = db.NewCreateTable().
		Model((*models.Submission)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create submissions table: %w", err)
	}
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_submissions_task_id ON submissions(task_id)`)
	if err != nil {
		return fmt.Errorf("failed to create submissions task_id index: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

// down_20250601000002 drops the submissions and tasks tables
func down_20250601000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping submissions and tasks tables...")
	for _, model := range []any{(*models.Submission)(nil), (*models.Task)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}
