// Package service implements buyer administration: registration with webhook
// key issuance, service config and coverage management, and the eligibility
// debugger.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"lead_exchange_backend/internal/buyers/eligibility"
	"lead_exchange_backend/internal/buyers/repository"
	"lead_exchange_backend/internal/buyers/transport"
	"lead_exchange_backend/platform/apperr"
	"lead_exchange_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service provides business logic for buyer administration.
type Service struct {
	repo     *repository.Repository
	resolver *eligibility.Resolver
	log      *logger.Logger
}

func New(repo *repository.Repository, resolver *eligibility.Resolver, log *logger.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, log: log}
}

// GenerateWebhookKey creates a random webhook API key and its stored hash.
// The plaintext is returned exactly once at buyer creation.
func GenerateWebhookKey() (plaintext, hash string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}
	plaintext = "whk_" + hex.EncodeToString(bytes)
	return plaintext, HashWebhookKey(plaintext), nil
}

// HashWebhookKey hashes a plaintext webhook key for storage and lookup.
func HashWebhookKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Create registers a buyer and issues its webhook key.
func (s *Service) Create(ctx context.Context, req transport.CreateBuyerRequest) (transport.CreateBuyerResponse, error) {
	plaintext, hash, err := GenerateWebhookKey()
	if err != nil {
		return transport.CreateBuyerResponse{}, err
	}

	buyer, err := s.repo.Create(ctx, repository.CreateBuyerParams{
		Ref:            req.Ref,
		Name:           req.Name,
		APIURL:         req.APIURL,
		AuthType:       req.AuthType,
		AuthConfig:     req.AuthConfig,
		WebhookKeyHash: hash,
		PingTimeoutMs:  req.PingTimeoutMs,
	})
	if err != nil {
		return transport.CreateBuyerResponse{}, err
	}

	s.log.Info("buyer registered", "buyerId", buyer.ID, "ref", buyer.Ref)
	return transport.CreateBuyerResponse{
		BuyerResponse: toBuyerResponse(buyer),
		WebhookKey:    plaintext,
	}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.BuyerResponse, error) {
	buyer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BuyerResponse{}, mapNotFound(err)
	}
	return toBuyerResponse(buyer), nil
}

func (s *Service) List(ctx context.Context) (transport.BuyerListResponse, error) {
	buyers, err := s.repo.List(ctx)
	if err != nil {
		return transport.BuyerListResponse{}, err
	}
	items := make([]transport.BuyerResponse, 0, len(buyers))
	for _, b := range buyers {
		items = append(items, toBuyerResponse(b))
	}
	return transport.BuyerListResponse{Items: items, Total: len(items)}, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateBuyerRequest) (transport.BuyerResponse, error) {
	buyer, err := s.repo.Update(ctx, id, repository.UpdateBuyerParams{
		Name:          req.Name,
		APIURL:        req.APIURL,
		AuthType:      req.AuthType,
		AuthConfig:    req.AuthConfig,
		IsActive:      req.IsActive,
		PingTimeoutMs: req.PingTimeoutMs,
	})
	if err != nil {
		return transport.BuyerResponse{}, mapNotFound(err)
	}
	return toBuyerResponse(buyer), nil
}

// Delete removes a buyer; service configs and coverage cascade.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapNotFound(err)
	}
	return nil
}

// UpsertConfig stores the (buyer, serviceType) templates and bid range.
func (s *Service) UpsertConfig(ctx context.Context, buyerID, serviceTypeID uuid.UUID, req transport.UpsertConfigRequest) (transport.ServiceConfigResponse, error) {
	if _, err := s.repo.GetByID(ctx, buyerID); err != nil {
		return transport.ServiceConfigResponse{}, mapNotFound(err)
	}
	if req.BidFloor != nil && req.BidCeiling != nil && req.BidCeiling.LessThan(*req.BidFloor) {
		return transport.ServiceConfigResponse{}, apperr.Validation("bidCeiling must be >= bidFloor")
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	cfg, err := s.repo.UpsertServiceConfig(ctx, repository.UpsertServiceConfigParams{
		BuyerID:       buyerID,
		ServiceTypeID: serviceTypeID,
		PingRules:     req.PingRules,
		PingStatics:   req.PingStatics,
		PostRules:     req.PostRules,
		PostStatics:   req.PostStatics,
		BidFloor:      req.BidFloor,
		BidCeiling:    req.BidCeiling,
		IsActive:      isActive,
	})
	if err != nil {
		return transport.ServiceConfigResponse{}, err
	}
	return toConfigResponse(cfg), nil
}

func (s *Service) GetConfig(ctx context.Context, buyerID, serviceTypeID uuid.UUID) (transport.ServiceConfigResponse, error) {
	cfg, err := s.repo.GetServiceConfig(ctx, buyerID, serviceTypeID)
	if err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			return transport.ServiceConfigResponse{}, apperr.NotFound("buyer service config not found")
		}
		return transport.ServiceConfigResponse{}, err
	}
	return toConfigResponse(cfg), nil
}

// UpsertZipCoverage bulk-upserts coverage zones for a config.
func (s *Service) UpsertZipCoverage(ctx context.Context, buyerID, serviceTypeID uuid.UUID, req transport.UpsertZipCoverageRequest) (int, error) {
	if _, err := s.repo.GetServiceConfig(ctx, buyerID, serviceTypeID); err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			return 0, apperr.NotFound("buyer service config not found")
		}
		return 0, err
	}

	params := make([]repository.UpsertZipCoverageParams, 0, len(req.Zones))
	for _, zone := range req.Zones {
		isActive := true
		if zone.IsActive != nil {
			isActive = *zone.IsActive
		}
		params = append(params, repository.UpsertZipCoverageParams{
			BuyerID:        buyerID,
			ServiceTypeID:  serviceTypeID,
			ZipCode:        zone.ZipCode,
			Priority:       zone.Priority,
			MaxLeadsPerDay: zone.MaxLeadsPerDay,
			BidFloor:       zone.BidFloor,
			BidCeiling:     zone.BidCeiling,
			IsActive:       isActive,
		})
	}
	return s.repo.UpsertZipCoverage(ctx, params)
}

func (s *Service) ListZipCoverage(ctx context.Context, buyerID, serviceTypeID uuid.UUID) (transport.ZipCoverageListResponse, error) {
	zones, err := s.repo.ListZipCoverage(ctx, buyerID, serviceTypeID)
	if err != nil {
		return transport.ZipCoverageListResponse{}, err
	}
	items := make([]transport.ZipCoverageResponse, 0, len(zones))
	for _, z := range zones {
		items = append(items, transport.ZipCoverageResponse{
			ZipCode:        z.ZipCode,
			Priority:       z.Priority,
			MaxLeadsPerDay: z.MaxLeadsPerDay,
			BidFloor:       z.BidFloor,
			BidCeiling:     z.BidCeiling,
			IsActive:       z.IsActive,
		})
	}
	return transport.ZipCoverageListResponse{Items: items, Total: len(items)}, nil
}

// ResolveEligibility runs the live resolver for the admin coverage debugger.
func (s *Service) ResolveEligibility(ctx context.Context, req transport.EligibilityRequest) (transport.EligibilityResponse, error) {
	serviceTypeID, err := uuid.Parse(req.ServiceTypeID)
	if err != nil {
		return transport.EligibilityResponse{}, apperr.Validation("invalid serviceTypeId")
	}

	opts := eligibility.Options{EnforceDailyCaps: req.EnforceCaps}
	if req.MinBid != "" {
		minBid, err := decimal.NewFromString(req.MinBid)
		if err != nil {
			return transport.EligibilityResponse{}, apperr.Validation("invalid minBid")
		}
		opts.RequireMinBid = &minBid
	}

	resolution, err := s.resolver.Resolve(ctx, serviceTypeID, req.ZipCode, opts)
	if err != nil {
		return transport.EligibilityResponse{}, err
	}

	resp := transport.EligibilityResponse{
		Eligible: make([]transport.EligibleBuyerView, 0, len(resolution.Eligible)),
		Excluded: make([]transport.ExclusionView, 0, len(resolution.Excluded)),
	}
	for _, e := range resolution.Eligible {
		resp.Eligible = append(resp.Eligible, transport.EligibleBuyerView{
			BuyerID:          e.Buyer.ID,
			BuyerRef:         e.Buyer.Ref,
			BuyerName:        e.Buyer.Name,
			Priority:         e.Priority,
			EffectiveFloor:   e.EffectiveFloor,
			EffectiveCeiling: e.EffectiveCeiling,
		})
	}
	for _, x := range resolution.Excluded {
		resp.Excluded = append(resp.Excluded, transport.ExclusionView{
			BuyerID:   x.BuyerID,
			BuyerName: x.BuyerName,
			Reason:    x.Reason,
		})
	}
	return resp, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("buyer not found")
	}
	return err
}

func toBuyerResponse(b repository.Buyer) transport.BuyerResponse {
	return transport.BuyerResponse{
		ID:            b.ID,
		Ref:           b.Ref,
		Name:          b.Name,
		APIURL:        b.APIURL,
		AuthType:      b.AuthType,
		IsActive:      b.IsActive,
		PingTimeoutMs: b.PingTimeoutMs,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func toConfigResponse(cfg repository.ServiceConfig) transport.ServiceConfigResponse {
	return transport.ServiceConfigResponse{
		ID:            cfg.ID,
		BuyerID:       cfg.BuyerID,
		ServiceTypeID: cfg.ServiceTypeID,
		PingRules:     cfg.PingRules,
		PingStatics:   cfg.PingStatics,
		PostRules:     cfg.PostRules,
		PostStatics:   cfg.PostStatics,
		BidFloor:      cfg.BidFloor,
		BidCeiling:    cfg.BidCeiling,
		IsActive:      cfg.IsActive,
		CreatedAt:     cfg.CreatedAt,
		UpdatedAt:     cfg.UpdatedAt,
	}
}
