package handler

import (
	"log/slog"
	"net/http"

	"github.com/feldrin/quill/internal/ctxkeys"
	"github.com/feldrin/quill/internal/flash"
	"github.com/feldrin/quill/internal/form"
	"github.com/feldrin/quill/internal/service"
	"github.com/feldrin/quill/internal/ui"
)

// AccountPageData is the template payload for the account page.
type AccountPageData struct {
	Form     *form.Account
	ImageURL string
}

type AccountHandler struct {
	accountService *service.AccountService
	pictureService *service.PictureService
}

func NewAccountHandler(accountService *service.AccountService, pictureService *service.PictureService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		pictureService: pictureService,
	}
}

// AccountPage renders the account form pre-populated from the current user.
func (h *AccountHandler) AccountPage(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	ui.Render(w, r, "account", "Account", &AccountPageData{
		Form: &form.Account{
			Username: user.Username,
			Email:    user.Email,
		},
		ImageURL: h.pictureService.URL(user.ImageFile),
	})
}

func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	// 10MB bounds the whole multipart body; the picture itself is checked
	// against its own limit when saved
	err := r.ParseMultipartForm(10 << 20)
	if err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	in := service.UpdateAccountInput{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
	}

	file, header, err := r.FormFile("picture")
	if err == nil {
		defer func() {
			closeErr := file.Close()
			if closeErr != nil {
				slog.Error("failed to close uploaded file", "error", closeErr)
			}
		}()
		in.Picture = file
		in.PictureName = header.Filename
	}

	formErrors, err := h.accountService.Update(user, in)
	if err != nil {
		slog.Error("account update failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if formErrors.Any() {
		ui.Render(w, r, "account", "Account", &AccountPageData{
			Form: &form.Account{
				Username: in.Username,
				Email:    in.Email,
				Errors:   formErrors,
			},
			ImageURL: h.pictureService.URL(user.ImageFile),
		})
		return
	}

	flash.Add(w, r, flash.CategorySuccess, "Your account has been updated!")
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}
