package api

import (
	"github.com/xeniagda/ilo-pi-ante-toki/internal/vocab"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
)

type EncodeRequest struct {
	Text     string `json:"text"`
	Segments bool   `json:"segments,omitempty"`
}

type EncodeResponse struct {
	Object   string    `json:"object"`
	IDs      []gram.ID `json:"ids"`
	Count    int       `json:"count"`
	Segments []string  `json:"segments,omitempty"`
}

type DecodeRequest struct {
	IDs []gram.ID `json:"ids"`
}

type DecodeResponse struct {
	Object string `json:"object"`
	Text   string `json:"text"`
}

type GramList struct {
	Object string        `json:"object"`
	Data   []vocab.Entry `json:"data"`
	Offset int           `json:"offset"`
	Total  int           `json:"total"`
}

type InfoResponse struct {
	Object     string      `json:"object"`
	Grams      int         `json:"grams"`
	Literals   int         `json:"literals"`
	Composites int         `json:"composites"`
	Boundary   string      `json:"boundary"`
	Training   *vocab.Info `json:"training,omitempty"`
}

type ResponseError struct {
	Message  string `json:"message"`
	Type     string `json:"type"`
	Code     string `json:"code,omitempty"`
	Position *int   `json:"position,omitempty"`
}
