package style

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/chainforge/devnode/framework/types"
)

var _ types.Reporter = &Console{}

// Console prints devnode progress to a terminal.
type Console struct {
	out io.Writer
	// dotting is set while a line of progress dots is open.
	dotting bool
}

// NewConsole returns a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) endDots() {
	if c.dotting {
		fmt.Fprintln(c.out)
		c.dotting = false
	}
}

func (c *Console) Step(msg string) {
	c.endDots()
	fmt.Fprintf(c.out, "%s %s\n", StepRunning.Render("==>"), Bold.Render(msg))
}

func (c *Console) Success(msg string) {
	c.endDots()
	fmt.Fprintf(c.out, "%s %s\n", StepDone.Render("✓"), msg)
}

func (c *Console) Progress() {
	c.dotting = true
	fmt.Fprint(c.out, DimText.Render("."))
}

func (c *Console) Output(line types.OutputLine) {
	text := strings.TrimRight(line.Text, "\r\n")
	if text == "" {
		return
	}
	c.endDots()
	fmt.Fprintf(c.out, "    %s\n", DimText.Render(text))
}

// Wallet prints the keys and balance of a funded account. The secret key is printed on
// purpose: these are development accounts of a local chain.
func (c *Console) Wallet(label string, kp types.KeyPair, balance *big.Int) {
	c.endDots()
	body := strings.Join([]string{
		Bold.Render(label),
		Key.Render("public key") + Val.Render(kp.PublicKey),
		Key.Render("private key") + Val.Render(kp.SecretKey),
		Key.Render("balance") + Tx.Render(balance.String()),
	}, "\n")
	fmt.Fprintln(c.out, CardStyle.Render(body))
}

func (c *Console) Error(err error) {
	c.endDots()
	fmt.Fprintln(c.out, ErrorBox.Render(StepFailed.Render("✗ ")+err.Error()))
}
