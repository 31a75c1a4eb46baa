package main

import (
	"fmt"
	"net/http"
	"os"

	"tokenomics/internal/clock"
	"tokenomics/internal/config"
	"tokenomics/internal/database"
	"tokenomics/internal/handlers"
	"tokenomics/internal/logger"
	"tokenomics/internal/middleware"
	"tokenomics/internal/models"
	"tokenomics/internal/services"
	"tokenomics/internal/signature"
	"tokenomics/internal/validator"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	clk := clock.System{}
	verifier := signature.NewVerifier(appConfig.ChainID)

	eventService := services.NewEventService(db)
	tokenService := services.NewTokenService(db)
	registryService := services.NewRegistryService(db, clk, eventService)
	vestingService := services.NewVestingService(db, clk, verifier, registryService, tokenService, eventService,
		appConfig.PeriodSeconds, appConfig.AccrualBoundary)
	stakingService := services.NewStakingService(db, clk, registryService, tokenService, eventService,
		appConfig.CooldownSeconds, appConfig.UnstakeWindow, appConfig.PeriodSeconds, appConfig.AccrualBoundary)

	// Seed well-known registry names from configuration
	if err := registryService.Seed(map[string]string{
		models.RegistryTreasury:      appConfig.TreasuryAddress,
		models.RegistryVestingEscrow: appConfig.EscrowAddress,
		models.RegistryStakingVault:  appConfig.StakingVaultAddress,
		models.RegistryNFT:           appConfig.NFTContractAddress,
		models.RegistryBackendSigner: appConfig.BackendSignerAddress,
	}); err != nil {
		return fmt.Errorf("failed to seed registry: %w", err)
	}

	// Ensure the reward pool singleton exists
	if err := stakingService.EnsureRewardPool(appConfig.EmissionPerSecond); err != nil {
		return fmt.Errorf("failed to initialize reward pool: %w", err)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler()
	tokenHandler := handlers.NewTokenHandler(tokenService)
	vestingHandler := handlers.NewVestingHandler(vestingService)
	stakingHandler := handlers.NewStakingHandler(stakingService)
	registryHandler := handlers.NewRegistryHandler(registryService)
	eventHandler := handlers.NewEventHandler(eventService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public registry reads
	registry := v1.Group("/registry")
	registry.GET("", registryHandler.List)
	registry.GET("/:name", registryHandler.GetAddress)
	registry.GET("/:name/history", registryHandler.GetHistory)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// Investment position routes
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

	// Treasury distribution
	protected.POST("/distributions", vestingHandler.Distribute)

	// Staking routes
	staking := protected.Group("/staking")
	staking.POST("/stake", stakingHandler.Stake)
	staking.POST("/positions/:id/stake", stakingHandler.StakePosition)
	staking.POST("/cooldown", stakingHandler.Cooldown)
	staking.POST("/redeem", stakingHandler.Redeem)
	staking.POST("/positions/:id/redeem", stakingHandler.RedeemPosition)
	staking.POST("/rewards/claim", stakingHandler.ClaimRewards)
	staking.GET("/rewards", stakingHandler.GetRewards)
	staking.GET("/account", stakingHandler.GetAccount)

	// Token routes
	tokens := protected.Group("/tokens")
	tokens.GET("/balance", tokenHandler.GetBalance)
	tokens.POST("/transfer", tokenHandler.Transfer)
	tokens.GET("/transfers", tokenHandler.GetTransfers)

	// Event log
	protected.GET("/events", eventHandler.GetEvents)

	// Operator routes (API key)
	operator := v1.Group("/operator")
	operator.Use(middleware.OperatorAuthMiddleware(appConfig.OperatorAPIKey))
	operator.POST("/auth/token", authHandler.IssueToken)
	operator.POST("/registry", registryHandler.SetAddress)
	operator.PUT("/registry", registryHandler.UpdateAddress)
	operator.POST("/tokens/mint", tokenHandler.Mint)
	operator.POST("/tokens/allowance", tokenHandler.IncreaseAllowance)
	operator.POST("/staking/allowance", vestingHandler.DelegateStakingAllowance)
	operator.PUT("/staking/emission", stakingHandler.SetEmission)

	log.Infof("Starting tokenomics backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
