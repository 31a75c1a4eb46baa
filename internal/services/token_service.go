package services

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	apperrors "tokenomics/internal/errors"
	"tokenomics/internal/models"
	"tokenomics/internal/pagination"
)

// NormalizeAddress canonicalizes a hex address to its lowercase 0x form so
// balance rows never split across mixed-case spellings of the same address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(common.HexToAddress(addr).Hex())
}

// tokenService is the custodial stand-in for the external treasury token:
// a plain balance ledger with transfer, allowance-gated transferFrom, and an
// operator mint.
type tokenService struct {
	db *gorm.DB
}

// NewTokenService creates a new TokenServicer.
func NewTokenService(db *gorm.DB) TokenServicer {
	return &tokenService{db: db}
}

// BalanceOf returns the balance of an address. Unknown addresses hold zero.
func (s *tokenService) BalanceOf(address string) (int64, error) {
	var account models.TokenAccount
	err := s.db.Where("address = ?", NormalizeAddress(address)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account.Balance, nil
}

// AllowanceOf returns the remaining allowance from owner to spender.
func (s *tokenService) AllowanceOf(owner, spender string) (int64, error) {
	var allowance models.TokenAllowance
	err := s.db.Where("owner_address = ? AND spender_address = ?",
		NormalizeAddress(owner), NormalizeAddress(spender)).First(&allowance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return allowance.Amount, nil
}

// Mint credits newly issued tokens to an address. Operator-gated at the
// handler layer.
func (s *tokenService) Mint(to string, amount int64) (*models.TokenAccount, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be positive")
	}

	var account *models.TokenAccount
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		account, txErr = creditAccount(tx, NormalizeAddress(to), amount)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Transfer moves amount from one balance to another inside the caller's
// transaction. Fails without any mutation when the source balance is short.
func (s *tokenService) Transfer(tx *gorm.DB, from, to string, amount int64, memo string) error {
	return s.move(tx, "", from, to, amount, memo)
}

// TransferFrom moves amount from the owner's balance on the strength of the
// spender's allowance, decrementing the allowance by the amount moved.
func (s *tokenService) TransferFrom(tx *gorm.DB, spender, from, to string, amount int64, memo string) error {
	spender = NormalizeAddress(spender)
	from = NormalizeAddress(from)

	var allowance models.TokenAllowance
	err := tx.Where("owner_address = ? AND spender_address = ?", from, spender).First(&allowance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrInsufficientAllowance
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if allowance.Amount < amount {
		return apperrors.ErrInsufficientAllowance
	}

	if err := tx.Model(&allowance).Update("amount", allowance.Amount-amount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.move(tx, spender, from, to, amount, memo)
}

// IncreaseAllowance raises the owner->spender allowance by amount.
func (s *tokenService) IncreaseAllowance(owner, spender string, amount int64) (*models.TokenAllowance, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be positive")
	}
	owner = NormalizeAddress(owner)
	spender = NormalizeAddress(spender)

	var allowance models.TokenAllowance
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txErr := tx.Where("owner_address = ? AND spender_address = ?", owner, spender).First(&allowance).Error
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			allowance = models.TokenAllowance{OwnerAddress: owner, SpenderAddress: spender, Amount: amount}
			if txErr := tx.Create(&allowance).Error; txErr != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
			}
			return nil
		}
		if txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		allowance.Amount += amount
		if txErr := tx.Model(&allowance).Update("amount", allowance.Amount).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &allowance, nil
}

// SendTransfer is the handler-facing transfer from the caller's own balance.
func (s *tokenService) SendTransfer(caller Caller, to string, amount int64, memo string) error {
	if amount <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be positive")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.Transfer(tx, caller.Address, to, amount, memo)
	})
}

// GetTransfers returns a paginated list of transfers touching an address.
func (s *tokenService) GetTransfers(address string, page pagination.PageRequest) (*pagination.PageResponse[models.TokenTransfer], error) {
	page.Defaults()
	address = NormalizeAddress(address)

	base := s.db.Model(&models.TokenTransfer{}).
		Where("from_address = ? OR to_address = ?", address, address)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transfers []models.TokenTransfer
	if err := base.Order("id DESC").Scopes(pagination.Paginate(page)).Find(&transfers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transfers, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// move debits from and credits to, recording the transfer.
func (s *tokenService) move(tx *gorm.DB, spender, from, to string, amount int64, memo string) error {
	if amount <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be positive")
	}
	from = NormalizeAddress(from)
	to = NormalizeAddress(to)

	var source models.TokenAccount
	err := tx.Where("address = ?", from).First(&source).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrInsufficientBalance
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if source.Balance < amount {
		return apperrors.ErrInsufficientBalance
	}

	if err := tx.Model(&source).Update("balance", source.Balance-amount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if _, err := creditAccount(tx, to, amount); err != nil {
		return err
	}

	transfer := &models.TokenTransfer{
		FromAddress:    from,
		ToAddress:      to,
		Amount:         amount,
		SpenderAddress: spender,
		Memo:           memo,
	}
	if err := tx.Create(transfer).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// creditAccount adds amount to an address, creating the row on first touch.
func creditAccount(tx *gorm.DB, address string, amount int64) (*models.TokenAccount, error) {
	var account models.TokenAccount
	err := tx.Where("address = ?", address).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = models.TokenAccount{Address: address, Balance: amount}
		if err := tx.Create(&account).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return &account, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	account.Balance += amount
	if err := tx.Model(&account).Update("balance", account.Balance).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}
