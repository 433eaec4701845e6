package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound      = errors.New("recurso no encontrado")
	ErrInvalidInput  = errors.New("entrada inválida")
	ErrDuplicate     = errors.New("recurso duplicado")
	ErrConflict      = errors.New("conflicto con el estado actual")
	ErrHasDependents = errors.New("el recurso tiene registros dependientes")

	// ErrCorruptCounter lo devuelve el repositorio de secuencias cuando el valor
	// persistido no es un entero válido. El asignador lo repara, nunca lo propaga.
	ErrCorruptCounter = errors.New("contador de facturas corrupto")

	// ErrPersistence envuelve cualquier fallo al guardar (contador o factura).
	ErrPersistence = errors.New("error de persistencia")
	// ErrRender envuelve fallos de generación del documento.
	ErrRender = errors.New("error al generar el documento")
	// ErrUnrenderableText: el texto no puede representarse con la fuente disponible.
	ErrUnrenderableText = errors.New("texto no representable con la fuente actual")
)
