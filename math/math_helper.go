// Package math includes important helpers for the epoch transition engine.
package math

import (
	"errors"
	stdmath "math"
	"math/bits"

	"github.com/thomaso-mirodin/intmath/u64"
)

var (
	// ErrOverflow occurs when an operation exceeds max or minimum values.
	ErrOverflow = errors.New("integer overflow")
	// ErrDivByZero occurs when a divisor is zero.
	ErrDivByZero = errors.New("integer divide by zero")
)

// IntegerSquareRoot defines a function that returns the
// largest possible integer root of a number.
//
// Spec pseudocode definition:
//
//	def integer_squareroot(n: uint64) -> uint64:
//	  """
//	  Return the largest integer ``x`` such that ``x**2 <= n``.
//	  """
//	  x = n
//	  y = (x + 1) // 2
//	  while y < x:
//	      x = y
//	      y = (x + n // x) // 2
//	  return x
func IntegerSquareRoot(n uint64) uint64 {
	if n == stdmath.MaxUint64 {
		return stdmath.MaxUint32
	}
	return u64.Sqrt(n)
}

// Mul64 multiples 2 64-bit unsigned integers and checks if they
// lead to an overflow. If they do not, it returns the result
// without an error.
func Mul64(a, b uint64) (uint64, error) {
	overflows, val := bits.Mul64(a, b)
	if overflows > 0 {
		return 0, ErrOverflow
	}
	return val, nil
}

// Div64 divides two 64-bit unsigned integers and checks for errors.
func Div64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrDivByZero
	}
	val, _ := bits.Div64(0, a, b)
	return val, nil
}

// Add64 adds 2 64-bit unsigned integers and checks if they
// lead to an overflow. If they do not, it returns the result
// without an error.
func Add64(a, b uint64) (uint64, error) {
	res, carry := bits.Add64(a, b, 0 /* carry */)
	if carry > 0 {
		return 0, ErrOverflow
	}
	return res, nil
}

// Sub64 subtracts two 64-bit unsigned integers and checks for errors.
func Sub64(a, b uint64) (uint64, error) {
	res, borrow := bits.Sub64(a, b, 0 /* borrow */)
	if borrow > 0 {
		return 0, ErrOverflow
	}
	return res, nil
}

// SaturatingSub returns a - b, or zero when b exceeds a.
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// Max returns the larger integer of the two
// given ones.This is used over the Max function
// in the standard math library because that max function
// has to check for some special floating point cases
// making it slower by a magnitude of 10.
func Max(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// Min returns the smaller integer of the two
// given ones. This is used over the Min function
// in the standard math library because that min function
// has to check for some special floating point cases
// making it slower by a magnitude of 10.
func Min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
