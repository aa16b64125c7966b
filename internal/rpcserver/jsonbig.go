package rpcserver

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// jsonBig decodes either a hex-prefixed string ("0x2540be400") or a plain
// JSON number, matching the two encodings Ethereum tooling actually sends
// for quantity fields like anvil_setBalance's balance argument.
type jsonBig struct{ *big.Int }

func (b *jsonBig) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
		if !ok {
			return fmt.Errorf("invalid hex quantity %q", s)
		}
		b.Int = v
		return nil
	}
	v := new(big.Int)
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	b.Int = v
	return nil
}
