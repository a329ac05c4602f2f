package factory

import (
	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/integration"
	"github.com/rentpay/rentpay/internal/integration/cybersource"
	"github.com/rentpay/rentpay/internal/integration/stripe"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/types"
)

// GatewayFactory holds one client per configured provider. New charges go to
// the default provider; refunds, reconciliation and webhooks go to whichever
// provider processed the payment.
type GatewayFactory struct {
	defaultProvider types.GatewayProvider
	gateways        map[types.GatewayProvider]integration.PaymentGateway
}

func NewGatewayFactory(cfg *config.Configuration, log *logger.Logger) *GatewayFactory {
	f := &GatewayFactory{
		defaultProvider: cfg.Gateway.Provider,
		gateways:        make(map[types.GatewayProvider]integration.PaymentGateway),
	}
	if cfg.Gateway.Cybersource.MerchantID != "" || cfg.Gateway.Provider == types.GatewayProviderCybersource {
		f.Register(cybersource.NewClient(cfg, log))
	}
	if cfg.Gateway.Stripe.SecretKey != "" || cfg.Gateway.Provider == types.GatewayProviderStripe {
		f.Register(stripe.NewClient(cfg, log))
	}
	return f
}

// NewGatewayFactoryWith builds a factory over the given gateways. The first one
// is the default.
func NewGatewayFactoryWith(gateways ...integration.PaymentGateway) *GatewayFactory {
	f := &GatewayFactory{gateways: make(map[types.GatewayProvider]integration.PaymentGateway)}
	for i, g := range gateways {
		if i == 0 {
			f.defaultProvider = g.Provider()
		}
		f.Register(g)
	}
	return f
}

func (f *GatewayFactory) Register(g integration.PaymentGateway) {
	f.gateways[g.Provider()] = g
}

// Default returns the gateway new charges are sent to.
func (f *GatewayFactory) Default() (integration.PaymentGateway, error) {
	return f.Get(f.defaultProvider)
}

// Get returns the gateway for provider. An empty provider means the default.
func (f *GatewayFactory) Get(provider types.GatewayProvider) (integration.PaymentGateway, error) {
	if provider == "" {
		provider = f.defaultProvider
	}
	g, ok := f.gateways[provider]
	if !ok {
		return nil, ierr.NewError("payment gateway not configured").
			WithHintf("Payment gateway %q is not configured", provider).
			WithReportableDetails(map[string]interface{}{"provider": provider}).
			Mark(ierr.ErrValidation)
	}
	return g, nil
}
