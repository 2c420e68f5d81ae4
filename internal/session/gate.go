package session

import "campusrecords/internal/model"

// Page is a top-level view of the portal.
type Page string

const (
	PageLogin    Page = "login"
	PageRegister Page = "register"
	PageAdmin    Page = "admin"
	PageStudent  Page = "student"
	PageWallet   Page = "wallet"
)

// Resolve derives the active page from the current account and the page the
// user explicitly asked for, if any. Register is only reachable without an
// account; wallet only with one.
func Resolve(acc *model.Account, requested Page) Page {
	if acc == nil {
		if requested == PageRegister {
			return PageRegister
		}
		return PageLogin
	}
	if requested == PageWallet {
		return PageWallet
	}
	switch acc.Role {
	case model.RoleAdmin:
		return PageAdmin
	case model.RoleStudent:
		return PageStudent
	default:
		return PageLogin
	}
}
