package handler

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reportapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers
// stay free of business logic; everything interesting happens in the
// service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.ReportService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Prometheus scrape endpoint (excluded from the request metrics)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/reports/:reportId/users/:userId", CreateReport(svc))
	app.Get("/reports/:reportId/users/:userId", GetReport(svc))
	app.Post("/reports/:reportId/users/:userId/transfer", RetryTransfer(svc))
	app.Get("/reports/:reportId/users/:userId/export", ExportTranscript(svc))
	app.Get("/reports/users/:userId", ListReports(svc))

	app.Post("/files/reports/:reportId/users/:userId", UploadFile(svc))
}

// HealthCheck answers readiness: it checks database connectivity only.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return fail(c, fiber.StatusServiceUnavailable, "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is the bare liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// uploadInput assembles the service input from route params, form fields and
// the optional multipart file. The returned cleanup closes the opened file
// and is never nil.
func uploadInput(c *fiber.Ctx) (service.UploadInput, func(), error) {
	in := service.UploadInput{
		UserID:     c.Params("userId"),
		ReportID:   c.Params("reportId"),
		FileName:   c.FormValue("fileName"),
		GradeLevel: c.FormValue("gradeLevel"),
		Subject:    c.FormValue("subject"),
		ReportName: c.FormValue("reportName"),
	}
	noop := func() {}

	fh, err := c.FormFile("file")
	if err != nil {
		// No file attached; the service decides whether that is allowed.
		return in, noop, nil
	}

	f, err := fh.Open()
	if err != nil {
		return in, noop, errors.New("cannot open uploaded file")
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	in.File = &service.FileUpload{
		OriginalName: fh.Filename,
		ContentType:  ct,
		Size:         fh.Size,
		Content:      f,
	}
	return in, func() { f.Close() }, nil
}

func writeUploadSuccess(c *fiber.Ctx, res *service.UploadResult, message string) error {
	p := payload{
		Flag:    true,
		Code:    fiber.StatusOK,
		Message: message,
	}
	if res.FileName != "" {
		p.Data = fiber.Map{"fileName": res.FileName}
		p.UploadStatus = statusSuccessful
	} else {
		p.Data = res.Report
	}
	if res.Transferred {
		p.TransferStatus = statusSuccessful
		p.TransferData = res.TransferData
	}
	return c.Status(fiber.StatusOK).JSON(p)
}

// CreateReport creates a report for (userId, reportId), rejecting duplicates
// with a 400, and optionally ingests a first file from the multipart body.
func CreateReport(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, cleanup, err := uploadInput(c)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		defer cleanup()

		res, err := svc.CreateReport(c.UserContext(), in)
		if err != nil {
			return writeUploadError(c, res, err)
		}
		return writeUploadSuccess(c, res, "report created successfully")
	}
}

// UploadFile ingests a file into a report, creating the report on the fly if
// it does not exist yet. The multipart field name is "file".
func UploadFile(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, cleanup, err := uploadInput(c)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		defer cleanup()
		if in.File == nil {
			return fail(c, fiber.StatusBadRequest, service.ErrFileRequired.Error())
		}

		res, err := svc.UploadFile(c.UserContext(), in)
		if err != nil {
			return writeUploadError(c, res, err)
		}
		return writeUploadSuccess(c, res, "file uploaded successfully")
	}
}

// GetReport answers the polling clients: the report wrapped in a one-element
// reports array.
func GetReport(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rep, err := svc.GetReport(c.UserContext(), c.Params("userId"), c.Params("reportId"))
		if err != nil {
			if errors.Is(err, service.ErrReportNotFound) {
				return fail(c, fiber.StatusBadRequest, err.Error())
			}
			if isValidationError(err) {
				return fail(c, fiber.StatusBadRequest, err.Error())
			}
			return fail(c, fiber.StatusInternalServerError, "internal server error")
		}
		return c.JSON(fiber.Map{"reports": []any{rep}})
	}
}

// ListReports returns all reports of a user, newest first.
func ListReports(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reports, err := svc.ListReports(c.UserContext(), c.Params("userId"))
		if err != nil {
			if isValidationError(err) {
				return fail(c, fiber.StatusBadRequest, err.Error())
			}
			return fail(c, fiber.StatusInternalServerError, "internal server error")
		}
		return c.JSON(fiber.Map{"reports": reports})
	}
}

// RetryTransfer re-dispatches the report's stored audio to the transcription
// engine. This is the manual re-trigger; nothing retries automatically.
func RetryTransfer(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.RetryTransfer(c.UserContext(), c.Params("userId"), c.Params("reportId"))
		if err != nil {
			if errors.Is(err, service.ErrReportNotFound) || errors.Is(err, service.ErrNoAudioFile) {
				return fail(c, fiber.StatusBadRequest, err.Error())
			}
			return writeUploadError(c, res, err)
		}
		return c.Status(fiber.StatusOK).JSON(payload{
			Flag:           true,
			Code:           fiber.StatusOK,
			Message:        "transfer re-dispatched",
			Data:           fiber.Map{"fileName": res.FileName, "jobId": res.JobID},
			TransferStatus: statusSuccessful,
			TransferData:   res.TransferData,
		})
	}
}

// ExportTranscript renders a finished transcript to CSV in object storage
// and returns a presigned download link.
func ExportTranscript(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.ExportTranscript(c.UserContext(), c.Params("userId"), c.Params("reportId"))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrReportNotFound), errors.Is(err, service.ErrTranscriptNotReady):
				return fail(c, fiber.StatusBadRequest, err.Error())
			case errors.Is(err, service.ErrExportUnavailable):
				return fail(c, fiber.StatusServiceUnavailable, err.Error())
			default:
				return fail(c, fiber.StatusInternalServerError, "internal server error")
			}
		}
		return ok(c, "transcript exported", fiber.Map{"key": res.Key, "url": res.URL})
	}
}
