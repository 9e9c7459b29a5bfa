package epub

import (
	"encoding/xml"
	"errors"
	"fmt"
)

var ErrDRMProtected = errors.New("epub: file is DRM protected")

const encryptionPath = "META-INF/encryption.xml"

// Font obfuscation is not DRM: content documents stay readable.
var obfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true,
	"http://ns.adobe.com/pdf/enc#RC":     true,
}

type encryptionXML struct {
	XMLName       xml.Name `xml:"encryption"`
	EncryptedData []struct {
		EncryptionMethod struct {
			Algorithm string `xml:"Algorithm,attr"`
		} `xml:"EncryptionMethod"`
		CipherData struct {
			CipherReference struct {
				URI string `xml:"URI,attr"`
			} `xml:"CipherReference"`
		} `xml:"CipherData"`
	} `xml:"EncryptedData"`
}

// checkDRM fails when encryption.xml lists anything but obfuscated fonts.
func (r *EPUBReader) checkDRM() error {
	if !r.HasEntry(encryptionPath) {
		return nil
	}
	data, err := r.ReadEntry(encryptionPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", encryptionPath, err)
	}

	var enc encryptionXML
	if err := xml.Unmarshal(data, &enc); err != nil {
		r.warnings = append(r.warnings, fmt.Sprintf("unreadable %s: %v", encryptionPath, err))
		return nil
	}
	for _, ed := range enc.EncryptedData {
		if !obfuscationAlgorithms[ed.EncryptionMethod.Algorithm] {
			return fmt.Errorf("%w: %s encrypted with %s", ErrDRMProtected,
				ed.CipherData.CipherReference.URI, ed.EncryptionMethod.Algorithm)
		}
	}
	return nil
}
