package handlers

import (
	"song-battle-system/middleware"
	"song-battle-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupBattleRoutes registers the pairing and match endpoints. Everything
// is per-user, so the whole surface sits behind the user context.
func SetupBattleRoutes(app *fiber.App,
	matchmaking *services.MatchmakingService,
	rooms *services.RoomService,
	practice *services.PracticeService,
	matches *services.MatchService) {

	secured := app.Group("/", middleware.UserContextMiddleware())

	// Quick match
	secured.Post("/battles/quick", matchmaking.JoinQuickMatch)
	secured.Post("/battles/quick/cancel", matchmaking.CancelQuickMatch)
	secured.Get("/battles/quick/status", matchmaking.QuickMatchStatus)

	// Private rooms
	secured.Post("/rooms", rooms.CreateRoom)
	secured.Get("/rooms/:code", rooms.GetRoom)
	secured.Post("/rooms/:code/join", rooms.JoinRoom)
	secured.Post("/rooms/:code/leave", rooms.LeaveRoom)

	// Practice vs CPU
	secured.Post("/battles/practice", practice.StartPractice)

	// Match lifecycle
	secured.Get("/matches/:id", matches.GetMatch)
	secured.Post("/matches/:id/start", matches.StartMatchEndpoint)
}

// SetupTournamentRoutes registers the shared-pool tournament endpoints.
func SetupTournamentRoutes(app *fiber.App, tournaments *services.TournamentService) {
	// Pool listings are readable without user context.
	app.Get("/tournaments", tournaments.ListTournaments)
	app.Get("/tournaments/:id", tournaments.GetTournament)
	app.Get("/jackpot", tournaments.GetJackpot)

	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/tournaments", tournaments.CreateTournament)
	secured.Post("/tournaments/:id/join", tournaments.JoinTournament)
}

// SetupWalletRoutes registers balance reads and cashout.
func SetupWalletRoutes(app *fiber.App, settlement *services.SettlementService, wallet *services.WalletService, practice *services.PracticeService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/balances/me", settlement.GetMyBalances)
	secured.Get("/balances/demo", practice.GetDemoBalance)
	secured.Get("/wallet/quote", wallet.QuoteCashout)
	secured.Post("/wallet/cashout", wallet.Cashout)
}
