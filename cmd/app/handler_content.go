package main

import (
	"errors"
	"net/http"

	"github.com/sushihentaime/showcase/internal/common"
)

func (app *application) createEntityHandler(svc entityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, cleanup, err := app.readEntityInput(w, r, svc.Resource())
		defer cleanup()
		if err != nil {
			app.entityInputErrorResponse(w, r, err)
			return
		}

		e, err := svc.Create(r.Context(), in)
		if err != nil {
			app.entityErrorResponse(w, r, err)
			return
		}

		err = app.writeJSON(w, http.StatusCreated, e, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
	}
}

func (app *application) listEntitiesHandler(svc entityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entities, err := svc.List(r.Context())
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}

		err = app.writeJSON(w, http.StatusOK, entities, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
	}
}

func (app *application) getEntityHandler(svc entityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := app.readIDParam(r, "id")
		if err != nil {
			app.badRequestErrorResponse(w, r, err)
			return
		}

		e, err := svc.GetByID(r.Context(), id)
		if err != nil {
			app.entityErrorResponse(w, r, err)
			return
		}

		err = app.writeJSON(w, http.StatusOK, e, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
	}
}

func (app *application) updateEntityHandler(svc entityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := app.readIDParam(r, "id")
		if err != nil {
			app.badRequestErrorResponse(w, r, err)
			return
		}

		in, cleanup, err := app.readEntityInput(w, r, svc.Resource())
		defer cleanup()
		if err != nil {
			app.entityInputErrorResponse(w, r, err)
			return
		}

		e, err := svc.Update(r.Context(), id, in)
		if err != nil {
			app.entityErrorResponse(w, r, err)
			return
		}

		err = app.writeJSON(w, http.StatusOK, e, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
	}
}

func (app *application) deleteEntityHandler(svc entityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := app.readIDParam(r, "id")
		if err != nil {
			app.badRequestErrorResponse(w, r, err)
			return
		}

		err = svc.Delete(r.Context(), id)
		if err != nil {
			app.entityErrorResponse(w, r, err)
			return
		}

		err = app.writeJSON(w, http.StatusOK, envelope{"message": svc.Resource().Name + " deleted successfully"}, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
	}
}

func (app *application) entityInputErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr common.ValidationError
		maxBytesError *http.MaxBytesError
	)

	switch {
	case errors.As(err, &validationErr):
		app.failedValidationErrorResponse(w, r, validationErr.Errors)
	case errors.As(err, &maxBytesError):
		app.payloadTooLargeErrorResponse(w, r, maxBytesError.Limit)
	case errors.Is(err, errUnsupportedMediaType):
		app.unsupportedMediaTypeErrorResponse(w, r)
	default:
		app.badRequestErrorResponse(w, r, err)
	}
}

func (app *application) entityErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr common.ValidationError

	switch {
	case errors.Is(err, common.ErrRecordNotFound):
		app.notFoundErrorResponse(w, r)
	case errors.As(err, &validationErr):
		app.failedValidationErrorResponse(w, r, validationErr.Errors)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
