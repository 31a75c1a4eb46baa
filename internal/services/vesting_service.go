package services

import (
	"encoding/json"
	"errors"
	"sync"

	"gorm.io/gorm"

	"tokenomics/internal/clock"
	"tokenomics/internal/config"
	apperrors "tokenomics/internal/errors"
	"tokenomics/internal/models"
	"tokenomics/internal/pagination"
	"tokenomics/internal/signature"
)

// vestingService owns investment positions and their escrowed principal.
// All mutations run under a single mutex and a single DB transaction:
// operations either complete fully or leave no trace.
type vestingService struct {
	db       *gorm.DB
	clk      clock.Clock
	verifier *signature.Verifier
	registry RegistryServicer
	tokens   TokenServicer
	events   EventServicer

	periodSeconds   int64
	accrualBoundary string

	mu sync.Mutex
}

// NewVestingService creates a new VestingServicer. The registry resolves the
// treasury, escrow, staking vault, and backend signer addresses at call time,
// so operator re-pointing takes effect without a restart.
func NewVestingService(
	db *gorm.DB,
	clk clock.Clock,
	verifier *signature.Verifier,
	registry RegistryServicer,
	tokens TokenServicer,
	events EventServicer,
	periodSeconds int64,
	accrualBoundary string,
) VestingServicer {
	return &vestingService{
		db:              db,
		clk:             clk,
		verifier:        verifier,
		registry:        registry,
		tokens:          tokens,
		events:          events,
		periodSeconds:   periodSeconds,
		accrualBoundary: accrualBoundary,
	}
}

// claimableTokens computes the claimable amount of a position at the given
// time. Zero before the cliff; afterwards the vested amount grows in steps
// of principal/periods per elapsed period, capped at principal. Whether a
// period unlocks at its start or its end follows the accrual boundary
// setting. Staked value is never claimable.
func claimableTokens(pos *models.InvestmentPosition, periodSeconds int64, accrualBoundary string, now int64) int64 {
	cliffEnd := pos.VestingStartAt + pos.CliffPeriods*periodSeconds
	if now < cliffEnd {
		return 0
	}

	elapsed := (now - pos.VestingStartAt) / periodSeconds
	if accrualBoundary == config.AccrualPeriodStart {
		elapsed++
	}
	if elapsed > pos.VestingPeriods {
		elapsed = pos.VestingPeriods
	}

	vested := pos.Principal / pos.VestingPeriods * elapsed
	if elapsed == pos.VestingPeriods {
		vested = pos.Principal
	}

	// Staked value comes out of the vested pool and stays locked until it
	// is redeemed back into escrow.
	claimable := vested - pos.Claimed - pos.Staked
	if claimable < 0 {
		return 0
	}
	return claimable
}

// MintInvestment creates a new position through the single internal
// constructor, dispatching on the request kind: direct mints require the
// admin role, authorized mints a valid single-use backend signature.
// Principal is pulled from the treasury into escrow via allowance.
func (s *vestingService) MintInvestment(req MintRequest) (*models.InvestmentPosition, error) {
	if req.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Principal must be positive")
	}
	if req.VestingPeriods <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Vesting periods must be positive")
	}
	if req.CliffPeriods < 0 || req.CliffPeriods > req.VestingPeriods {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Cliff must be within the vesting schedule")
	}
	if req.Recipient == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Recipient is required")
	}
	if req.Kind == MintAuthorizedWithNFT && req.NFTTokenID == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "NFT token id is required")
	}

	now := s.clk.Now().Unix()
	if req.VestingStartAt == 0 {
		if req.Kind != MintDirect {
			// The backend signed a specific start time; it cannot be defaulted.
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Vesting start is required")
		}
		req.VestingStartAt = now
	}

	if req.Kind == MintDirect && !req.Caller.HasRole(RoleAdmin) {
		return nil, apperrors.ErrForbidden
	}

	treasury, err := s.registry.GetAddressOf(models.RegistryTreasury)
	if err != nil {
		return nil, err
	}
	escrow, err := s.registry.GetAddressOf(models.RegistryVestingEscrow)
	if err != nil {
		return nil, err
	}

	pos := &models.InvestmentPosition{
		OwnerAddress:   NormalizeAddress(req.Recipient),
		Principal:      req.Amount,
		VestingPeriods: req.VestingPeriods,
		VestingStartAt: req.VestingStartAt,
		CliffPeriods:   req.CliffPeriods,
	}
	eventType := models.EventInvestmentMinted
	if req.Kind == MintAuthorizedWithNFT {
		pos.NFTTokenID = req.NFTTokenID
		pos.NFTLevel = req.NFTLevel
		eventType = models.EventInvestmentMintedNFT
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.Kind != MintDirect {
			backend, txErr := s.registry.GetAddressOf(models.RegistryBackendSigner)
			if txErr != nil {
				return txErr
			}
			hash := s.verifier.MintHash(req.Caller.Address, signature.MintPayload{
				Recipient:      req.Recipient,
				Amount:         req.Amount,
				VestingStartAt: req.VestingStartAt,
				VestingPeriods: req.VestingPeriods,
				CliffPeriods:   req.CliffPeriods,
				NFTLevel:       req.NFTLevel,
			}, req.Expiry)
			digest, txErr := s.verifier.VerifyAndConsume(tx, req.Signature, backend, hash, req.Expiry, now)
			if txErr != nil {
				return txErr
			}
			if txErr := s.events.Record(tx, &models.LedgerEvent{
				Type:       models.EventSignatureConsumed,
				Actor:      NormalizeAddress(req.Caller.Address),
				OccurredAt: now,
				Payload:    mustJSON(map[string]any{"digest": digest}),
			}); txErr != nil {
				return txErr
			}
		}

		if txErr := s.tokens.TransferFrom(tx, escrow, treasury, escrow, req.Amount, "investment escrow"); txErr != nil {
			return txErr
		}

		if txErr := tx.Create(pos).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}

		payload := map[string]any{
			"vesting_periods":  pos.VestingPeriods,
			"vesting_start_at": pos.VestingStartAt,
			"cliff_periods":    pos.CliffPeriods,
		}
		if pos.NFTTokenID != nil {
			payload["nft_token_id"] = *pos.NFTTokenID
			payload["nft_level"] = pos.NFTLevel
		}
		return s.events.Record(tx, &models.LedgerEvent{
			Type:       eventType,
			Actor:      NormalizeAddress(req.Caller.Address),
			Recipient:  pos.OwnerAddress,
			PositionID: &pos.ID,
			Amount:     pos.Principal,
			OccurredAt: now,
			Payload:    mustJSON(payload),
		})
	})
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// GetClaimable returns the amount currently claimable from a position.
func (s *vestingService) GetClaimable(id uint) (int64, error) {
	pos, err := s.GetInvestment(id)
	if err != nil {
		return 0, err
	}
	return claimableTokens(pos, s.periodSeconds, s.accrualBoundary, s.clk.Now().Unix()), nil
}

// Claim pays out up to the claimable amount from escrow. Callable by the
// position owner, or by the backend role on the owner's behalf. Claimed
// amounts only ever grow; over-claims are rejected before any mutation.
func (s *vestingService) Claim(caller Caller, id uint, amount int64, recipient string) (*models.InvestmentPosition, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be positive")
	}

	escrow, err := s.registry.GetAddressOf(models.RegistryVestingEscrow)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	var pos *models.InvestmentPosition
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Re-read inside the locked transaction; concurrent claims must
		// each see the claimed total the previous one committed.
		var txErr error
		pos, txErr = loadPosition(tx, id)
		if txErr != nil {
			return txErr
		}
		if NormalizeAddress(caller.Address) != pos.OwnerAddress && !caller.HasRole(RoleBackend, RoleAdmin) {
			return apperrors.ErrForbidden
		}
		if recipient == "" {
			recipient = pos.OwnerAddress
		}
		if amount > claimableTokens(pos, s.periodSeconds, s.accrualBoundary, now) {
			return apperrors.ErrInsufficientClaimable
		}
		if txErr := s.tokens.Transfer(tx, escrow, recipient, amount, "vesting claim"); txErr != nil {
			return txErr
		}
		pos.Claimed += amount
		if txErr := tx.Model(pos).Update("claimed", pos.Claimed).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return s.events.Record(tx, &models.LedgerEvent{
			Type:       models.EventTokensClaimed,
			Actor:      NormalizeAddress(caller.Address),
			Recipient:  NormalizeAddress(recipient),
			PositionID: &pos.ID,
			Amount:     amount,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// Burn deletes a position and refunds the unclaimed, unstaked remainder of
// its escrow to the treasury. Admin only: a position owner can never burn
// their own grant.
func (s *vestingService) Burn(caller Caller, id uint) (int64, error) {
	if !caller.HasRole(RoleAdmin) {
		return 0, apperrors.ErrForbidden
	}

	treasury, err := s.registry.GetAddressOf(models.RegistryTreasury)
	if err != nil {
		return 0, err
	}
	escrow, err := s.registry.GetAddressOf(models.RegistryVestingEscrow)
	if err != nil {
		return 0, err
	}

	now := s.clk.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	var refund int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		pos, txErr := loadPosition(tx, id)
		if txErr != nil {
			return txErr
		}
		if pos.Staked > 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "Position has staked tokens; redeem them first")
		}
		refund = pos.Principal - pos.Claimed
		if refund > 0 {
			if txErr := s.tokens.Transfer(tx, escrow, treasury, refund, "investment burn refund"); txErr != nil {
				return txErr
			}
		}
		if txErr := tx.Delete(pos).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return s.events.Record(tx, &models.LedgerEvent{
			Type:       models.EventInvestmentBurned,
			Actor:      NormalizeAddress(caller.Address),
			Recipient:  NormalizeAddress(treasury),
			PositionID: &pos.ID,
			Amount:     refund,
			OccurredAt: now,
		})
	})
	if err != nil {
		return 0, err
	}
	return refund, nil
}

// Distribute transfers treasury tokens to a recipient with no vesting
// schedule attached, gated by a backend authorization. Escrow bookkeeping is
// untouched.
func (s *vestingService) Distribute(caller Caller, sigHex string, expiry int64, recipient string, amount int64) error {
	if amount <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be positive")
	}
	if recipient == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Recipient is required")
	}

	treasury, err := s.registry.GetAddressOf(models.RegistryTreasury)
	if err != nil {
		return err
	}
	escrow, err := s.registry.GetAddressOf(models.RegistryVestingEscrow)
	if err != nil {
		return err
	}
	backend, err := s.registry.GetAddressOf(models.RegistryBackendSigner)
	if err != nil {
		return err
	}

	now := s.clk.Now().Unix()
	hash := s.verifier.DistributionHash(caller.Address, recipient, amount, expiry)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		digest, txErr := s.verifier.VerifyAndConsume(tx, sigHex, backend, hash, expiry, now)
		if txErr != nil {
			return txErr
		}
		if txErr := s.events.Record(tx, &models.LedgerEvent{
			Type:       models.EventSignatureConsumed,
			Actor:      NormalizeAddress(caller.Address),
			OccurredAt: now,
			Payload:    mustJSON(map[string]any{"digest": digest}),
		}); txErr != nil {
			return txErr
		}
		if txErr := s.tokens.TransferFrom(tx, escrow, treasury, recipient, amount, "distribution"); txErr != nil {
			return txErr
		}
		return s.events.Record(tx, &models.LedgerEvent{
			Type:       models.EventTokensDistributed,
			Actor:      NormalizeAddress(caller.Address),
			Recipient:  NormalizeAddress(recipient),
			Amount:     amount,
			OccurredAt: now,
		})
	})
}

// DelegateStakingAllowance lets the staking vault pull up to amount from the
// ledger's escrow, enabling staking of unclaimed vested tokens without a
// prior claim. Admin only.
func (s *vestingService) DelegateStakingAllowance(caller Caller, amount int64) error {
	if !caller.HasRole(RoleAdmin) {
		return apperrors.ErrForbidden
	}
	escrow, err := s.registry.GetAddressOf(models.RegistryVestingEscrow)
	if err != nil {
		return err
	}
	vault, err := s.registry.GetAddressOf(models.RegistryStakingVault)
	if err != nil {
		return err
	}
	_, err = s.tokens.IncreaseAllowance(escrow, vault, amount)
	return err
}

// GetInvestment returns a live position by id.
func (s *vestingService) GetInvestment(id uint) (*models.InvestmentPosition, error) {
	return loadPosition(s.db, id)
}

// loadPosition reads a live position through the given handle. Mutations pass
// their transaction so checks run against current committed state.
func loadPosition(tx *gorm.DB, id uint) (*models.InvestmentPosition, error) {
	var pos models.InvestmentPosition
	if err := tx.First(&pos, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvestmentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &pos, nil
}

// GetInvestmentInfo returns the summary projection of a position.
func (s *vestingService) GetInvestmentInfo(id uint) (*InvestmentInfo, error) {
	pos, err := s.GetInvestment(id)
	if err != nil {
		return nil, err
	}
	return &InvestmentInfo{
		Principal:      pos.Principal,
		Claimed:        pos.Claimed,
		VestingPeriods: pos.VestingPeriods,
		CliffEndAt:     pos.VestingStartAt + pos.CliffPeriods*s.periodSeconds,
	}, nil
}

// GetInvestmentByNFT resolves the position bound to an investor NFT.
func (s *vestingService) GetInvestmentByNFT(nftTokenID int64) (*models.InvestmentPosition, error) {
	var pos models.InvestmentPosition
	err := s.db.Where("nft_token_id = ?", nftTokenID).First(&pos).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvestmentNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &pos, nil
}

// ListInvestments returns a paginated list of an owner's positions.
func (s *vestingService) ListInvestments(owner string, page pagination.PageRequest) (*pagination.PageResponse[models.InvestmentPosition], error) {
	page.Defaults()

	base := s.db.Model(&models.InvestmentPosition{}).Where("owner_address = ?", NormalizeAddress(owner))

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var positions []models.InvestmentPosition
	if err := base.Order("id ASC").Scopes(pagination.Paginate(page)).Find(&positions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(positions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// mustJSON marshals an event payload; payloads are built from plain maps and
// cannot fail to marshal.
func mustJSON(v map[string]any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
