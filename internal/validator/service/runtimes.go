package service

import (
	"context"

	"debugoj/internal/validator/model"
	"debugoj/internal/validator/quota"
	"debugoj/internal/validator/runtime"
)

// RuntimeReport describes which substrate serves each language and how warm it is.
type RuntimeReport struct {
	Languages map[model.Language]model.Substrate         `json:"languages"`
	Bootstrap map[model.Substrate]runtime.SubstrateStats `json:"bootstrap"`
	Quota     *quota.Usage                               `json:"remote_quota,omitempty"`
}

// RuntimeReporter assembles RuntimeReport; counter may be nil.
type RuntimeReporter struct {
	dispatcher *runtime.Dispatcher
	boot       *runtime.Bootstrapper
	counter    quota.Counter
}

func NewRuntimeReporter(d *runtime.Dispatcher, boot *runtime.Bootstrapper, counter quota.Counter) *RuntimeReporter {
	return &RuntimeReporter{dispatcher: d, boot: boot, counter: counter}
}

func (r *RuntimeReporter) Report(ctx context.Context) RuntimeReport {
	report := RuntimeReport{
		Languages: r.dispatcher.Substrates(),
		Bootstrap: r.boot.Stats(),
	}
	if r.counter != nil {
		usage := quota.Snapshot(ctx, r.counter)
		report.Quota = &usage
	}
	return report
}
