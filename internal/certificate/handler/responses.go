package handler

import "civreg/internal/certificate/models"

type ListResponse struct {
	Certificates []models.Summary `json:"certificates"`
	Limit        int              `json:"limit"`
	Offset       int              `json:"offset"`
}
