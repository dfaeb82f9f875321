package evaluation

import (
	"context"

	"github.com/google/uuid"

	"github.com/yanqian/rockwatch/internal/domain/localization"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/routing"
	"github.com/yanqian/rockwatch/internal/domain/site"
)

// Pipeline runs assess, explain, render and route for one site and cycle.
// It performs no I/O beyond what model adapters do and keeps no state
// between calls.
type Pipeline struct {
	orchestrator *risk.Orchestrator
	assembler    *risk.Assembler
	renderer     *localization.Renderer
	router       *routing.Router
}

// NewPipeline wires the pipeline stages.
func NewPipeline(orchestrator *risk.Orchestrator, assembler *risk.Assembler, renderer *localization.Renderer, router *routing.Router) *Pipeline {
	return &Pipeline{
		orchestrator: orchestrator,
		assembler:    assembler,
		renderer:     renderer,
		router:       router,
	}
}

// Run evaluates readings for s. The only error is risk.ErrInsufficientData.
func (p *Pipeline) Run(ctx context.Context, s site.Site, readings risk.Readings) (Bundle, error) {
	assessment, err := p.orchestrator.Assess(ctx, s.ID, readings)
	if err != nil {
		return Bundle{}, err
	}
	explanation := p.assembler.Assemble(readings, assessment)
	alerts := p.renderer.Render(explanation, assessment, localization.AlertContext{SiteID: s.ID, SiteName: s.Name}, s.Languages)
	return Bundle{
		ID:          uuid.NewString(),
		Site:        s,
		Readings:    readings.Clone(),
		Assessment:  assessment,
		Explanation: explanation,
		Alerts:      alerts,
		Groups:      p.router.Route(assessment.Level),
		Channels:    p.router.Channels(assessment.Level),
		CreatedAt:   assessment.Timestamp,
	}, nil
}
