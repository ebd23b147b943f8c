package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders)
	authMiddleware := standardMiddleware.Append(app.requireUser)

	mux := pat.New()

	mux.Get("/health", standardMiddleware.ThenFunc(app.health))

	// Profiles
	mux.Post("/profile", authMiddleware.ThenFunc(app.profileHandler.Onboard))
	mux.Get("/profile/me", authMiddleware.ThenFunc(app.profileHandler.Me))
	mux.Put("/profile/me", authMiddleware.ThenFunc(app.profileHandler.Rename))
	mux.Get("/profile/:uid", authMiddleware.ThenFunc(app.profileHandler.GetProfile))

	// Items
	mux.Post("/items", authMiddleware.ThenFunc(app.itemHandler.ReportItem))
	mux.Get("/items", authMiddleware.ThenFunc(app.itemHandler.ListItems))
	mux.Get("/items/:id", authMiddleware.ThenFunc(app.itemHandler.GetItem))
	mux.Put("/items/:id", authMiddleware.ThenFunc(app.itemHandler.UpdateItem))
	mux.Del("/items/:id", authMiddleware.ThenFunc(app.itemHandler.DeleteItem))

	// Matches
	mux.Get("/matches", authMiddleware.ThenFunc(app.matchHandler.ListMatches))
	mux.Get("/matches/:id", authMiddleware.ThenFunc(app.matchHandler.GetMatch))
	mux.Post("/matches/:id/accept", authMiddleware.ThenFunc(app.matchHandler.AcceptMatch))
	mux.Post("/matches/:id/reject", authMiddleware.ThenFunc(app.matchHandler.RejectMatch))

	// Exchange
	mux.Get("/matches/:id/exchange", authMiddleware.ThenFunc(app.exchangeHandler.GetExchange))
	mux.Post("/matches/:id/exchange/give", authMiddleware.ThenFunc(app.exchangeHandler.GiveItem))
	mux.Post("/matches/:id/exchange/confirm", authMiddleware.ThenFunc(app.exchangeHandler.ConfirmReceipt))

	// Notifications
	mux.Post("/device-tokens", authMiddleware.ThenFunc(app.profileHandler.RegisterDevice))
	mux.Del("/device-tokens/:token", authMiddleware.ThenFunc(app.profileHandler.UnregisterDevice))
	mux.Get("/ws", alice.New(app.recoverPanic, app.logRequest, app.requireUser).ThenFunc(app.wsHandler.Connect))

	return mux
}
