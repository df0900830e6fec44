package app

import (
	"fmt"

	"stockguard/internal/checkout"
	"stockguard/internal/stock"
)

// ServiceFactory creates business logic services with their dependencies
type ServiceFactory struct {
	infra *Container
}

func NewServiceFactory(infra *Container) *ServiceFactory {
	return &ServiceFactory{
		infra: infra,
	}
}

// CreateChecker wires the availability resolver to the inventory client
func (f *ServiceFactory) CreateChecker() (*stock.Checker, error) {
	cfg := f.infra.Config()
	resolver, err := stock.NewResolver(f.infra.InventoryClient(), cfg.LookupTimeout,
		f.infra.Logger(), f.infra.Tracer(), f.infra.Meter())
	if err != nil {
		return nil, fmt.Errorf("failed to create availability resolver: %w", err)
	}
	return stock.NewChecker(resolver, f.infra.Logger(), f.infra.Tracer(), cfg.MaxConcurrency), nil
}

func (f *ServiceFactory) CreateCheckoutService(checker *stock.Checker) (*checkout.Service, error) {
	return checkout.NewService(checker, f.infra.Config(), f.infra.Logger(), f.infra.Meter())
}

func (f *ServiceFactory) CreateConsumerService(svc *checkout.Service) checkout.ConsumerService {
	handler := checkout.NewMessageHandler(svc, f.infra.MessageProducer(), f.infra.Logger())
	return checkout.NewConsumerService(f.infra.MessageConsumer(), handler, f.infra.Logger())
}

func (f *ServiceFactory) CreateHTTPHandler(svc *checkout.Service) *checkout.HTTPHandler {
	return checkout.NewHTTPHandler(svc, f.infra.Logger(), f.infra.Config().CORSOrigins)
}
