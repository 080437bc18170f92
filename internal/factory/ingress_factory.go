package factory

import (
	"fmt"

	"github.com/taployalty/mail-agent/internal/adapters/ingress"
	"github.com/taployalty/mail-agent/internal/config"
	"github.com/taployalty/mail-agent/internal/core"
	"github.com/taployalty/mail-agent/internal/ports"
	"go.uber.org/zap"
)

// IngressFactory creates trigger surfaces
type IngressFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.PipelineService
}

// NewIngressFactory creates a new ingress factory
func NewIngressFactory(cfg *config.Config, logger *zap.Logger, service *core.PipelineService) *IngressFactory {
	return &IngressFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateIngress creates a trigger surface based on the configuration
func (f *IngressFactory) CreateIngress() (ports.Ingress, error) {
	ingressCfg := f.cfg.GetIngress()

	switch ingressCfg.Type {
	case "http":
		return ingress.NewHTTPIngress(f.service, f.logger, ingressCfg.HTTPListenAddress), nil
	case "smtp":
		return ingress.NewSMTPIngress(f.service, f.logger, ingressCfg.SMTPListenAddress, ingressCfg.SMTPDomain), nil
	default:
		return nil, fmt.Errorf("unsupported ingress type: %s", ingressCfg.Type)
	}
}
