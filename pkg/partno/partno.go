// Package partno normaliza números de parte y de lote leídos de etiquetas QR o capturados a mano.
package partno

import (
	"strings"

	"golang.org/x/text/width"
)

// Normalize pliega caracteres de ancho completo (lectores QR configurados en japonés/chino),
// recorta espacios y pasa a mayúsculas.
func Normalize(s string) string {
	s = width.Fold.String(s)
	return strings.ToUpper(strings.TrimSpace(s))
}

// Key construye la llave de serialización de una parte/lote.
// Con lotNumber vacío la llave cubre toda la parte.
func Key(partNumber, lotNumber string) string {
	if lotNumber == "" {
		return "wip:" + partNumber + "|*"
	}
	return "wip:" + partNumber + "|" + lotNumber
}
