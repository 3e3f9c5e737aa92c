// Package identifier genera los códigos legibles del sistema: SKU de producto
// y códigos secuenciales de usuario. Todas las funciones son deterministas; el
// número secuencial lo aporta el asignador de secuencias.
package identifier

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SequenceWidth ancho mínimo del número secuencial (001, 002, ...).
const SequenceWidth = 3

// Format concatena el prefijo con el valor rellenado con ceros a SequenceWidth.
// Valores mayores a 999 simplemente ocupan más dígitos.
func Format(prefix string, value int64) string {
	return fmt.Sprintf("%s%0*d", prefix, SequenceWidth, value)
}

// Acronym toma la primera letra de hasta maxWords palabras del nombre.
// Las palabras se separan por cualquier carácter que no sea letra ni dígito,
// así "Parle-G Biscuit" produce "PGB". Los acentos se eliminan ("Café Árabe" -> "CA").
func Acronym(name string, maxWords int) string {
	words := strings.FieldsFunc(fold(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	var b strings.Builder
	for _, w := range words {
		r := []rune(w)
		b.WriteRune(unicode.ToUpper(r[0]))
	}
	return b.String()
}

// Checksum suma los códigos de carácter del nombre completo, módulo 100.
func Checksum(name string) int {
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return sum % 100
}

// SKUPrefix arma el namespace de secuencia para un SKU: CATEGORIA-ACRONIMOCS-.
// Ej. ("GROC", "Parle-G Biscuit") -> "GROC-PGB71-".
func SKUPrefix(categoryPrefix, name string) string {
	return fmt.Sprintf("%s-%s%02d-", strings.ToUpper(strings.TrimSpace(categoryPrefix)), Acronym(name, 3), Checksum(name))
}

// fold quita marcas diacríticas (NFD + remoción de Mn + NFC).
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
