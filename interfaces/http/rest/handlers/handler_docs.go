package handlers

// OpenAPI annotations for routes whose handlers are generic or mounted.

// ListResources lists a tenant collection
// @Summary List resources
// @Description Lists rows of customers, themes, tours, checklists, widgets or images, newest first
// @Tags resources
// @Produce json
// @Param resource path string true "Collection" Enums(customers, themes, tours, checklists, widgets, images)
// @Param limit query int false "Maximum rows (default 50, max 200)"
// @Success 200 {array} object
// @Failure 401 {object} errors.ErrorResponse "Unauthorized"
// @Failure 500 {object} errors.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /{resource} [get]

// CreateResource creates a row
// @Summary Create a resource
// @Description Creates a row owned by the caller's agency. Publishing on a free plan is refused.
// @Tags resources
// @Accept json
// @Produce json
// @Param resource path string true "Collection"
// @Success 201 {object} object
// @Failure 400 {object} errors.ErrorResponse "Validation error"
// @Failure 403 {object} errors.ErrorResponse "Plan does not allow this"
// @Failure 401 {object} errors.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /{resource} [post]

// GetResource returns one row
// @Summary Get a resource
// @Tags resources
// @Produce json
// @Param resource path string true "Collection"
// @Param id path string true "Row ID"
// @Success 200 {object} object
// @Failure 404 {object} errors.ErrorResponse "Not found or owned by another agency"
// @Security BearerAuth
// @Router /{resource}/{id} [get]

// UpdateResource patches a row
// @Summary Update a resource
// @Tags resources
// @Accept json
// @Produce json
// @Param resource path string true "Collection"
// @Param id path string true "Row ID"
// @Success 200 {object} object
// @Failure 400 {object} errors.ErrorResponse "Validation error"
// @Failure 403 {object} errors.ErrorResponse "Plan does not allow this"
// @Failure 404 {object} errors.ErrorResponse "Not found"
// @Security BearerAuth
// @Router /{resource}/{id} [patch]

// DeleteResource deletes a row
// @Summary Delete a resource
// @Tags resources
// @Param resource path string true "Collection"
// @Param id path string true "Row ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse "Not found"
// @Security BearerAuth
// @Router /{resource}/{id} [delete]

// ExportCustomersDoc downloads the customer list
// @Summary Export customers as CSV
// @Tags customers
// @Produce text/csv
// @Success 200 {string} string "CSV file"
// @Failure 429 {object} errors.ErrorResponse "Export cooldown active, see Retry-After"
// @Security BearerAuth
// @Router /customers/export.csv [get]

// UploadImageDoc stores a template's base image
// @Summary Upload a base image
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Template ID"
// @Param file formData file true "PNG, JPEG or WebP, at most 5 MB"
// @Success 200 {object} entities.ImageTemplate
// @Failure 400 {object} errors.ErrorResponse "Invalid image"
// @Failure 429 {object} errors.ErrorResponse "Upload cooldown active, see Retry-After"
// @Security BearerAuth
// @Router /images/{id}/upload [post]

// SnapPositionDoc snaps a drop point to an anchor
// @Summary Snap a widget position
// @Tags widgets
// @Accept json
// @Produce json
// @Param request body SnapRequest true "Drop point and frame size"
// @Success 200 {object} SnapResponse
// @Security BearerAuth
// @Router /widgets/position/snap [post]

// DraftDoc reports a draft session
// @Summary Open or inspect a draft
// @Tags drafts
// @Produce json
// @Param resource path string true "Collection" Enums(themes, tours, checklists, widgets)
// @Param id path string true "Row ID"
// @Success 200 {object} services.DraftStatus
// @Security BearerAuth
// @Router /drafts/{resource}/{id} [get]

// EmbedConfigDoc returns the embed configuration
// @Summary Embed configuration
// @Tags embed
// @Produce json
// @Param embedKey path string true "Agency embed key"
// @Success 200 {object} services.EmbedConfig
// @Failure 404 {object} errors.ErrorResponse "Unknown embed key"
// @Failure 429 {object} errors.ErrorResponse "Too many requests"
// @Router /embed/{embedKey}/config [get]

// RecordEventDoc records a social-proof event
// @Summary Record a social-proof event
// @Tags embed
// @Accept json
// @Produce json
// @Param embedKey path string true "Agency embed key"
// @Param id path string true "Widget ID"
// @Param request body services.ProofInput true "Event"
// @Success 201 {object} services.ProofView
// @Failure 429 {object} errors.ErrorResponse "One event per visitor every 5 seconds"
// @Router /embed/{embedKey}/widgets/{id}/events [post]
