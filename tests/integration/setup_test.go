package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tokenomics/internal/clock"
	"tokenomics/internal/config"
	"tokenomics/internal/handlers"
	"tokenomics/internal/logger"
	"tokenomics/internal/middleware"
	"tokenomics/internal/models"
	"tokenomics/internal/services"
	"tokenomics/internal/signature"
	"tokenomics/internal/testutil"
	"tokenomics/internal/validator"
)

const (
	testChainID     = int64(1)
	testPeriod      = int64(100)
	testCooldown    = int64(1000)
	testWindow      = int64(500)
	testOperatorKey = "test-operator-key"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Clock    *clock.Mock
	Signer   *signature.Signer
	Registry testutil.TestRegistry
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:integrationdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.TokenAccount{},
		&models.TokenAllowance{},
		&models.TokenTransfer{},
		&models.InvestmentPosition{},
		&models.StakeAccount{},
		&models.RewardPool{},
		&models.UsedSignature{},
		&models.RegistryEntry{},
		&models.LedgerEvent{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite, with a funded treasury and the escrow allowance in place.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	clk := clock.NewMock(time.Unix(1_700_000_000, 0))
	signer := testutil.NewTestSigner(t)
	reg := testutil.SeedTestRegistry(t, db, signer.Address())

	testutil.CreateTestTokenAccount(t, db, reg.Treasury, 1_000_000)
	testutil.CreateTestAllowance(t, db, reg.Treasury, reg.Escrow, 1_000_000)

	// Services
	verifier := signature.NewVerifier(testChainID)
	eventService := services.NewEventService(db)
	tokenService := services.NewTokenService(db)
	registryService := services.NewRegistryService(db, clk, eventService)
	vestingService := services.NewVestingService(db, clk, verifier, registryService, tokenService, eventService,
		testPeriod, config.AccrualPeriodEnd)
	stakingService := services.NewStakingService(db, clk, registryService, tokenService, eventService,
		testCooldown, testWindow, testPeriod, config.AccrualPeriodEnd)
	if err := stakingService.EnsureRewardPool(0); err != nil {
		t.Fatalf("failed to create reward pool: %v", err)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler()
	tokenHandler := handlers.NewTokenHandler(tokenService)
	vestingHandler := handlers.NewVestingHandler(vestingService)
	stakingHandler := handlers.NewStakingHandler(stakingService)
	registryHandler := handlers.NewRegistryHandler(registryService)
	eventHandler := handlers.NewEventHandler(eventService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	registry := v1.Group("/registry")
	registry.GET("", registryHandler.List)
	registry.GET("/:name", registryHandler.GetAddress)
	registry.GET("/:name/history", registryHandler.GetHistory)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	investments := protected.Group("/investments")
	investments.POST("", vestingHandler.MintInvestment)
	investments.POST("/authorized", vestingHandler.MintAuthorized)
	investments.GET("", vestingHandler.ListInvestments)
	investments.GET("/:id", vestingHandler.GetInvestment)
	investments.GET("/:id/info", vestingHandler.GetInvestmentInfo)
	investments.GET("/:id/claimable", vestingHandler.GetClaimable)
	investments.POST("/:id/claim", vestingHandler.Claim)
	investments.DELETE("/:id", vestingHandler.Burn)
	investments.GET("/nft/:nftTokenId", vestingHandler.GetInvestmentByNFT)

	protected.POST("/distributions", vestingHandler.Distribute)

	staking := protected.Group("/staking")
	staking.POST("/stake", stakingHandler.Stake)
	staking.POST("/positions/:id/stake", stakingHandler.StakePosition)
	staking.POST("/cooldown", stakingHandler.Cooldown)
	staking.POST("/redeem", stakingHandler.Redeem)
	staking.POST("/positions/:id/redeem", stakingHandler.RedeemPosition)
	staking.POST("/rewards/claim", stakingHandler.ClaimRewards)
	staking.GET("/rewards", stakingHandler.GetRewards)
	staking.GET("/account", stakingHandler.GetAccount)

	tokens := protected.Group("/tokens")
	tokens.GET("/balance", tokenHandler.GetBalance)
	tokens.POST("/transfer", tokenHandler.Transfer)
	tokens.GET("/transfers", tokenHandler.GetTransfers)

	protected.GET("/events", eventHandler.GetEvents)

	operator := v1.Group("/operator")
	operator.Use(middleware.OperatorAuthMiddleware(testOperatorKey))
	operator.POST("/auth/token", authHandler.IssueToken)
	operator.POST("/registry", registryHandler.SetAddress)
	operator.PUT("/registry", registryHandler.UpdateAddress)
	operator.POST("/tokens/mint", tokenHandler.Mint)
	operator.POST("/tokens/allowance", tokenHandler.IncreaseAllowance)
	operator.POST("/staking/allowance", vestingHandler.DelegateStakingAllowance)
	operator.PUT("/staking/emission", stakingHandler.SetEmission)

	return &testApp{DB: db, Router: router, Clock: clk, Signer: signer, Registry: reg}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// operatorRequest makes an HTTP request authenticated with the operator API key.
func (app *testApp) operatorRequest(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testOperatorKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// issueToken mints an access token for the given address and role through the
// operator endpoint.
func (app *testApp) issueToken(t *testing.T, address, role string) string {
	t.Helper()
	body := fmt.Sprintf(`{"address":%q,"role":%q}`, address, role)
	rec := app.operatorRequest("POST", "/api/v1/operator/auth/token", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("token issuance failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string)
}
