package endian

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// DecryptAES decrypts data with AES-128-CBC using the cache key convention:
// the key is the ASCII key string and the IV is the key XORed with 0xA5.
// Data whose length is not a multiple of the block size is zero padded.
func DecryptAES(data []byte, key string) ([]byte, error) {
	k := []byte(key)
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes key: %w", err)
	}

	iv := make([]byte, len(k))
	for i, b := range k {
		iv[i] = b ^ 0xA5
	}

	n := len(data)
	if rem := n % aes.BlockSize; rem != 0 {
		n += aes.BlockSize - rem
	}
	out := make([]byte, n)
	copy(out, data)

	cipher.NewCBCDecrypter(block, iv[:aes.BlockSize]).CryptBlocks(out, out)
	return out, nil
}

// EncryptAES is the inverse of DecryptAES. Output is zero padded to the
// block size.
func EncryptAES(data []byte, key string) ([]byte, error) {
	k := []byte(key)
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes key: %w", err)
	}

	iv := make([]byte, len(k))
	for i, b := range k {
		iv[i] = b ^ 0xA5
	}

	n := len(data)
	if rem := n % aes.BlockSize; rem != 0 {
		n += aes.BlockSize - rem
	}
	out := make([]byte, n)
	copy(out, data)

	cipher.NewCBCEncrypter(block, iv[:aes.BlockSize]).CryptBlocks(out, out)
	return out, nil
}

// ReadAES reads size bytes, rounded up to the AES block size, and decrypts
// them with key.
func (r *Reader) ReadAES(size int, key string) ([]byte, error) {
	n := size
	if rem := n % aes.BlockSize; rem != 0 {
		n += aes.BlockSize - rem
	}
	data, err := r.ReadBytes(n)
	if err != nil {
		return nil, fmt.Errorf("read encrypted block: %w", err)
	}
	return DecryptAES(data, key)
}
