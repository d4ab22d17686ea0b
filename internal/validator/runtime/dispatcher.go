package runtime

import (
	"context"
	"fmt"
	"runtime/debug"

	"debugoj/internal/validator/model"
	"debugoj/pkg/utils/contextkey"
	"debugoj/pkg/utils/logger"

	"go.uber.org/zap"
)

// DispatcherOptions controls routing behaviour.
type DispatcherOptions struct {
	// FallbackToSimulation retries a ServiceUnavailable result on the simulation adapter.
	FallbackToSimulation bool `yaml:"fallbackToSimulation"`
}

// Dispatcher maps each language to exactly one adapter.
type Dispatcher struct {
	routes     map[model.Language]Adapter
	simulation Adapter
	opts       DispatcherOptions
}

// NewDispatcher routes languages without a registered adapter to simulation.
func NewDispatcher(routes map[model.Language]Adapter, simulation Adapter, opts DispatcherOptions) *Dispatcher {
	table := make(map[model.Language]Adapter, len(model.Languages()))
	for _, lang := range model.Languages() {
		if adapter, ok := routes[lang]; ok && adapter != nil {
			table[lang] = adapter
		} else {
			table[lang] = simulation
		}
	}
	return &Dispatcher{routes: table, simulation: simulation, opts: opts}
}

// Route returns the adapter serving tag.
func (d *Dispatcher) Route(tag string) (Adapter, model.Language, bool) {
	lang, ok := model.ParseLanguage(tag)
	if !ok {
		return nil, "", false
	}
	adapter := d.routes[lang]
	return adapter, lang, adapter != nil
}

// Execute runs req on its language's adapter and never fails.
func (d *Dispatcher) Execute(ctx context.Context, req model.ExecutionRequest) model.ExecutionResult {
	adapter, lang, ok := d.Route(string(req.Language))
	if !ok {
		return model.Failed("", model.ErrorServiceUnavailable, fmt.Sprintf("unsupported language: %s", req.Language))
	}
	req.Language = lang

	res := d.run(ctx, adapter, req)
	if res.ErrorKind == model.ErrorServiceUnavailable && d.opts.FallbackToSimulation &&
		d.simulation != nil && adapter != d.simulation {
		logger.Info(ctx, "falling back to simulation",
			zap.String("language", string(lang)),
			zap.String("substrate", string(adapter.Substrate())),
			zap.String("reason", res.Diagnostic))
		res = d.run(ctx, d.simulation, req)
	}
	return res
}

// Substrates lists the substrate serving each language.
func (d *Dispatcher) Substrates() map[model.Language]model.Substrate {
	out := make(map[model.Language]model.Substrate, len(d.routes))
	for lang, adapter := range d.routes {
		if adapter != nil {
			out[lang] = adapter.Substrate()
		}
	}
	return out
}

func (d *Dispatcher) run(ctx context.Context, adapter Adapter, req model.ExecutionRequest) (res model.ExecutionResult) {
	substrate := adapter.Substrate()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "adapter panicked",
				zap.String("substrate", string(substrate)),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			res = model.Failed(substrate, model.ErrorRuntime, fmt.Sprintf("internal execution error: %v", r))
		}
	}()
	return adapter.Execute(context.WithValue(ctx, contextkey.Substrate, string(substrate)), req)
}
