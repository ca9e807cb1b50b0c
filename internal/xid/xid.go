// Package xid mints the prefixed identifiers used for payroll entities.
// The timestamp keeps ids roughly sortable by creation time; the random
// suffix guards against collisions within the same nanosecond.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	prefixWorker     = "wkr"
	prefixAdvance    = "adv"
	prefixAttendance = "att"
	prefixSalary     = "sal"
)

func Worker() string     { return newID(prefixWorker) }
func Advance() string    { return newID(prefixAdvance) }
func Attendance() string { return newID(prefixAttendance) }
func Salary() string     { return newID(prefixSalary) }

func newID(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
