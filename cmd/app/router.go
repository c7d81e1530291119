package main

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sushihentaime/showcase/internal/attachment"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundErrorResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedErrorResponse)

	router.HandlerFunc(http.MethodGet, "/api/healthcheck", app.healthCheckHandler)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	router.HandlerFunc(http.MethodPost, "/api/auth/login", app.loginUserHandler)
	router.HandlerFunc(http.MethodGet, "/api/auth/users", app.requireAdmin(app.listUsersHandler))
	router.HandlerFunc(http.MethodPost, "/api/auth/users", app.requireAdmin(app.createUserHandler))
	router.HandlerFunc(http.MethodDelete, "/api/auth/users/:id", app.requireAdmin(app.deleteUserHandler))

	for _, svc := range app.entities {
		res := svc.Resource()
		base := "/api/" + res.Name

		router.HandlerFunc(http.MethodGet, base, app.listEntitiesHandler(svc))
		router.HandlerFunc(http.MethodPost, base, app.requireAuthUser(app.createEntityHandler(svc)))
		router.HandlerFunc(http.MethodGet, base+"/:id", app.getEntityHandler(svc))
		router.HandlerFunc(http.MethodPut, base+"/:id", app.requireAuthUser(app.updateEntityHandler(svc)))
		router.HandlerFunc(http.MethodDelete, base+"/:id", app.requireAuthUser(app.deleteEntityHandler(svc)))

		router.ServeFiles("/uploads/"+res.Dir+"/*filepath", fileOnlyFS{http.Dir(filepath.Join(app.config.UploadDir, res.Dir))})
	}

	return app.recoverPanic(app.metrics(app.logRequest(app.enableCORS(app.rateLimit(app.authenticate(router))))))
}

// fileOnlyFS hides directories and uploads still being written.
type fileOnlyFS struct {
	fs http.FileSystem
}

func (nfs fileOnlyFS) Open(name string) (http.File, error) {
	if attachment.IsTemp(path.Base(name)) {
		return nil, os.ErrNotExist
	}

	f, err := nfs.fs.Open(name)
	if err != nil {
		return nil, err
	}

	s, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if s.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}

	return f, nil
}
