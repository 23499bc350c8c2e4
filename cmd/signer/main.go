// Command signer prints the headers a client must send to the service for a
// given request body, for use with curl or an intercepting proxy.
//
//	signer -data hello
//	signer -scheme hmac -secret s3cret -body 'data=hello'
//	echo '{"id":"1"}' | signer -scheme jws -secret s3cret -path /quote
package main

import (
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/url"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/iliyamo/signature-echo/internal/config"
	"github.com/iliyamo/signature-echo/internal/signature"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, time.Now); err != nil {
		log.SetFlags(0)
		log.Fatalf("signer: %v", err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer, now func() time.Time) error {
	fs := flag.NewFlagSet("signer", flag.ContinueOnError)
	scheme := fs.String("scheme", signature.SchemeDigest, "signature scheme: digest, hmac or jws")
	secret := fs.String("secret", os.Getenv("SIGNATURE_SECRET"), "shared secret for hmac and jws")
	data := fs.String("data", "", "value of the data form field; the body becomes data=<value>")
	body := fs.String("body", "", "raw request body (read from stdin when neither -data nor -body is set)")
	path := fs.String("path", "/quote", "request path embedded in jws tokens")
	tz := fs.String("tz", "Asia/Singapore", "time zone of the Timestamp header")
	if err := fs.Parse(args); err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var payload []byte
	switch {
	case set["data"]:
		payload = []byte(url.Values{"data": {*data}}.Encode())
	case set["body"]:
		payload = []byte(*body)
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		payload = b
	}

	switch *scheme {
	case signature.SchemeDigest:
		fmt.Fprintf(stdout, "Signature: %s\n", signature.Digest(payload))
	case signature.SchemeHMAC:
		if *secret == "" {
			return errors.New("-secret is required for hmac")
		}
		fmt.Fprintf(stdout, "Signature: %s\n", signature.SignHMAC([]byte(*secret), payload))
	case signature.SchemeJWS:
		if *secret == "" {
			return errors.New("-secret is required for jws")
		}
		loc, err := time.LoadLocation(*tz)
		if err != nil {
			return err
		}
		compact, err := signature.CompactJSON(payload)
		if err != nil {
			return err
		}
		ts := now().In(loc).Format(config.TimestampLayout)
		ref, err := newRef()
		if err != nil {
			return err
		}
		token, err := signature.SignJWS([]byte(*secret), signature.JWSHeader{Type: "JWT", URI: *path, IAT: ts}, compact)
		if err != nil {
			return err
		}
		payload = compact
		fmt.Fprintf(stdout, "Timestamp: %s\nRef: %s\nSignature: %s\n", ts, ref, token)
	default:
		return fmt.Errorf("unknown scheme %q", *scheme)
	}
	fmt.Fprintf(stdout, "\n%s\n", payload)
	return nil
}

// newRef returns "PT1" followed by a random 46-bit number.
func newRef() (string, error) {
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 46))
	if err != nil {
		return "", err
	}
	return "PT1" + n.String(), nil
}
