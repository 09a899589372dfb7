package fmarket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPage = `<!DOCTYPE html>
<html><body>
<input id="focusEmail" type="email">
<input id="focusPassword" type="password">
<div id="table-products" style="display:none">
  <div>Tất cả Quỹ trái phiếu</div>
  <div>Tất cả Quỹ trái phiếu</div>
  <div onclick="showBonds()">Tất cả Quỹ trái phiếu</div>
  <table><tbody><tr><td>EQUITY Quỹ cổ phiếu</td><td>X</td><td>1 Theo NAV tại 01/01</td></tr></tbody></table>
</div>
<script>
document.getElementById('focusPassword').addEventListener('keydown', function (e) {
  if (e.key === 'Enter' && document.getElementById('focusEmail').value === 'user@example.com' && this.value === 'secret') {
    document.getElementById('table-products').style.display = 'block';
  }
});
function showBonds() {
  document.querySelector('#table-products tbody').innerHTML =
    '<tr><td>DCBF Quỹ Trái phiếu</td><td>DCVFM</td><td>27,512.34 Theo NAV tại 15/10</td><td>+0.5%</td></tr>';
}
</script>
</body></html>`

func TestScraperFetchRows(t *testing.T) {
	installer := NewInstaller(nil, "")
	if _, err := installer.Ensure(context.Background()); err != nil {
		t.Skipf("no browser available: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(loginPage))
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.LoginURL = srv.URL
	opts.SettleDelay = 100 * time.Millisecond
	opts.NoSandbox = true

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	scraper := NewScraper(Credentials{Email: "user@example.com", Password: "secret"}, opts, installer)
	rows, err := scraper.FetchRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "DCBF Quỹ Trái phiếu", rows[0][0])
	assert.Equal(t, "27,512.34 Theo NAV tại 15/10", rows[0][2])
}

// lateFilterPage renders the filter elements some time after the product
// table becomes visible.
const lateFilterPage = `<!DOCTYPE html>
<html><body>
<input id="focusEmail" type="email">
<input id="focusPassword" type="password">
<div id="table-products" style="display:none">
  <table><tbody></tbody></table>
</div>
<script>
document.getElementById('focusPassword').addEventListener('keydown', function (e) {
  if (e.key !== 'Enter') return;
  const products = document.getElementById('table-products');
  products.style.display = 'block';
  setTimeout(function () {
    for (let i = 0; i < 3; i++) {
      const d = document.createElement('div');
      d.innerText = 'Tất cả Quỹ trái phiếu';
      if (i === 2) d.onclick = showBonds;
      products.insertBefore(d, products.querySelector('table'));
    }
  }, 700);
});
function showBonds() {
  document.querySelector('#table-products tbody').innerHTML =
    '<tr><td>SSIBF Quỹ Trái phiếu</td><td>SSIAM</td><td>13,001 Theo NAV tại 15/10</td></tr>';
}
</script>
</body></html>`

func TestScraperWaitsForLateFilter(t *testing.T) {
	installer := NewInstaller(nil, "")
	if _, err := installer.Ensure(context.Background()); err != nil {
		t.Skipf("no browser available: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(lateFilterPage))
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.LoginURL = srv.URL
	opts.SettleDelay = 100 * time.Millisecond
	opts.FilterWait = 10 * time.Second
	opts.NoSandbox = true

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rows, err := NewScraper(Credentials{Email: "user@example.com", Password: "secret"}, opts, installer).FetchRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SSIBF Quỹ Trái phiếu", rows[0][0])
}

func TestScraperInstallFailure(t *testing.T) {
	installer := NewInstaller(nil, "")
	installer.lookPath = fakeLookPath(nil)

	_, err := NewScraper(Credentials{}, DefaultOptions(), installer).FetchRows(context.Background())

	var eerr *ExtractionError
	require.True(t, errors.As(err, &eerr))
	assert.Equal(t, "install", eerr.Stage)
	assert.True(t, IsExtractionError(err))
}
