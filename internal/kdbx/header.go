package kdbx

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"

	"github.com/iudanet/keepvault/internal/crypto"
	"github.com/iudanet/keepvault/internal/models"
)

// Сигнатуры и версия формата
const (
	Signature1  uint32 = 0x9AA2D903
	Signature2  uint32 = 0xB54BFB67
	FileVersion uint32 = 0x00030001

	versionCriticalMask uint32 = 0xFFFF0000

	startBytesSize = 32
	ivSize         = 16
)

type fieldID byte

const (
	fieldEndOfHeader fieldID = iota
	fieldComment
	fieldCipherID
	fieldCompression
	fieldMasterSeed
	fieldTransformSeed
	fieldTransformRounds
	fieldEncryptionIV
	fieldProtectedStreamKey
	fieldStreamStartBytes
	fieldInnerRandomStream
	fieldKDFParameters
)

// Header is the unencrypted prologue of a container.
type Header struct {
	MasterSeed         []byte
	EncryptionIV       []byte
	ProtectedStreamKey []byte
	StreamStartBytes   []byte
	KDF                crypto.KDFParameters
	CipherID           uuid.UUID
	Compression        models.Compression
	InnerRandomStream  crypto.StreamID
	Version            uint32

	// Hash is SHA-256 over the raw header bytes, terminator included.
	Hash [sha256.Size]byte
}

// ReadHeader parses the prologue and header fields from r and hashes them.
// The version is checked before any field is read.
func ReadHeader(r io.Reader) (*Header, error) {
	hasher := sha256.New()
	tr := io.TeeReader(r, hasher)

	var prologue [12]byte
	if _, err := io.ReadFull(tr, prologue[:]); err != nil {
		return nil, fmt.Errorf("%w: failed to read signature: %v", ErrCorruptFile, err)
	}
	sig1 := binary.LittleEndian.Uint32(prologue[0:4])
	sig2 := binary.LittleEndian.Uint32(prologue[4:8])
	if sig1 != Signature1 || sig2 != Signature2 {
		return nil, fmt.Errorf("%w: invalid signature", ErrCorruptFile)
	}

	h := &Header{
		Version:           binary.LittleEndian.Uint32(prologue[8:12]),
		CipherID:          crypto.AESCipherUUID,
		Compression:       models.CompressionNone,
		InnerRandomStream: crypto.StreamArcFourVariant,
		KDF:               crypto.DefaultKDFParameters(),
	}
	if h.Version&versionCriticalMask > FileVersion&versionCriticalMask {
		return nil, fmt.Errorf("%w: 0x%08X", ErrUnsupportedVersion, h.Version)
	}

	for {
		var fh [3]byte
		if _, err := io.ReadFull(tr, fh[:]); err != nil {
			return nil, fmt.Errorf("%w: failed to read header field: %v", ErrCorruptFile, err)
		}
		id := fieldID(fh[0])
		data := make([]byte, binary.LittleEndian.Uint16(fh[1:3]))
		if _, err := io.ReadFull(tr, data); err != nil {
			return nil, fmt.Errorf("%w: failed to read header field %d: %v", ErrCorruptFile, id, err)
		}

		if id == fieldEndOfHeader {
			break
		}
		if err := h.setField(id, data); err != nil {
			return nil, err
		}
	}

	if err := h.validate(); err != nil {
		return nil, err
	}
	copy(h.Hash[:], hasher.Sum(nil))
	return h, nil
}

func (h *Header) setField(id fieldID, data []byte) error {
	switch id {
	case fieldCipherID:
		cid, err := uuid.FromBytes(data)
		if err != nil {
			return fmt.Errorf("%w: invalid cipher id", ErrCorruptFile)
		}
		h.CipherID = cid
	case fieldCompression:
		if len(data) != 4 {
			return fmt.Errorf("%w: invalid compression flag", ErrCorruptFile)
		}
		h.Compression = models.Compression(binary.LittleEndian.Uint32(data))
		if h.Compression > models.CompressionGZip {
			return fmt.Errorf("%w: unknown compression %d", ErrCorruptFile, h.Compression)
		}
	case fieldMasterSeed:
		h.MasterSeed = data
	case fieldTransformSeed:
		h.KDF.Seed = data
	case fieldTransformRounds:
		if len(data) != 8 {
			return fmt.Errorf("%w: invalid transform rounds", ErrCorruptFile)
		}
		h.KDF.Rounds = binary.LittleEndian.Uint64(data)
	case fieldEncryptionIV:
		h.EncryptionIV = data
	case fieldProtectedStreamKey:
		h.ProtectedStreamKey = data
	case fieldStreamStartBytes:
		h.StreamStartBytes = data
	case fieldInnerRandomStream:
		if len(data) != 4 {
			return fmt.Errorf("%w: invalid inner random stream id", ErrCorruptFile)
		}
		h.InnerRandomStream = crypto.StreamID(binary.LittleEndian.Uint32(data))
	case fieldKDFParameters:
		// uuid(16) | memory KiB u32 | parallelism u8
		if len(data) != 21 {
			return fmt.Errorf("%w: invalid KDF parameters", ErrCorruptFile)
		}
		kid, err := uuid.FromBytes(data[:16])
		if err != nil {
			return fmt.Errorf("%w: invalid KDF id", ErrCorruptFile)
		}
		h.KDF.UUID = kid
		h.KDF.MemoryKiB = binary.LittleEndian.Uint32(data[16:20])
		h.KDF.Parallelism = data[20]
	default:
		// комментарии и неизвестные поля пропускаются
	}
	return nil
}

func (h *Header) validate() error {
	var errs []error
	if len(h.MasterSeed) != crypto.SeedSize {
		errs = append(errs, errors.New("master seed"))
	}
	if len(h.KDF.Seed) != crypto.SeedSize {
		errs = append(errs, errors.New("transform seed"))
	}
	if len(h.EncryptionIV) == 0 {
		errs = append(errs, errors.New("encryption IV"))
	}
	if len(h.ProtectedStreamKey) == 0 {
		errs = append(errs, errors.New("protected stream key"))
	}
	if len(h.StreamStartBytes) != startBytesSize {
		errs = append(errs, errors.New("stream start bytes"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: missing or invalid header fields: %w", ErrCorruptFile, errors.Join(errs...))
	}
	return nil
}

// Bytes serializes the header and stores its hash in h.Hash.
func (h *Header) Bytes() []byte {
	var buf bytes.Buffer
	var u32 [4]byte

	binary.LittleEndian.PutUint32(u32[:], Signature1)
	buf.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], Signature2)
	buf.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], FileVersion)
	buf.Write(u32[:])

	writeField := func(id fieldID, data []byte) {
		var fh [3]byte
		fh[0] = byte(id)
		binary.LittleEndian.PutUint16(fh[1:], uint16(len(data)))
		buf.Write(fh[:])
		buf.Write(data)
	}
	le32 := func(v uint32) []byte {
		return binary.LittleEndian.AppendUint32(nil, v)
	}

	writeField(fieldCipherID, h.CipherID[:])
	writeField(fieldCompression, le32(uint32(h.Compression)))
	writeField(fieldMasterSeed, h.MasterSeed)
	writeField(fieldTransformSeed, h.KDF.Seed)
	writeField(fieldTransformRounds, binary.LittleEndian.AppendUint64(nil, h.KDF.Rounds))
	writeField(fieldEncryptionIV, h.EncryptionIV)
	writeField(fieldProtectedStreamKey, h.ProtectedStreamKey)
	writeField(fieldStreamStartBytes, h.StreamStartBytes)
	writeField(fieldInnerRandomStream, le32(uint32(h.InnerRandomStream)))
	if !h.KDF.IsAES() {
		writeField(fieldKDFParameters, slices.Concat(h.KDF.UUID[:], le32(h.KDF.MemoryKiB), []byte{h.KDF.Parallelism}))
	}
	writeField(fieldEndOfHeader, []byte{'\r', '\n', '\r', '\n'})

	out := buf.Bytes()
	h.Hash = sha256.Sum256(out)
	return out
}
