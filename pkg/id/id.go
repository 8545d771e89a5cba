package id

import (
	"crypto/md5"
	"fmt"
	"io"

	foxuuid "github.com/fox-one/pkg/uuid"
	"github.com/gofrs/uuid"
)

// GenTraceID new random trace id
func GenTraceID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// UUIDFromString new uuid string from text, same text same uuid
func UUIDFromString(text string) string {
	h := md5.New()
	io.WriteString(h, text)
	sum := h.Sum(nil)
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	return uuid.FromBytesOrNil(sum).String()
}

// TraceIDf deterministic trace id from a formatted key
func TraceIDf(format string, args ...interface{}) string {
	return UUIDFromString(fmt.Sprintf(format, args...))
}

// Derive derive a child trace id from a parent trace id
func Derive(traceID, modifier string) string {
	return foxuuid.Modify(traceID, modifier)
}
