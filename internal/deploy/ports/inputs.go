package ports

import (
	"context"

	"github.com/nathantilsley/shipdeck/internal/deploy/domain"
)

// DeployUseCase is the driving port for running one deployment. The
// returned Report is populated even when err is non-nil.
type DeployUseCase interface {
	Execute(ctx context.Context, desc domain.Descriptor) (domain.Report, error)
}
