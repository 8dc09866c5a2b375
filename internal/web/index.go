package web

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Aegis</title>
  <style>
    :root { --bg:#ffffff; --ink:#111111; --ink-soft:#9c9c9c; --panel:#f6f6f6; }
    * { box-sizing:border-box; }
    body { margin:0; padding:2rem; background:var(--bg); color:var(--ink); font-family:'Space Mono','JetBrains Mono',monospace; }
    #app { max-width:960px; margin:0 auto; background:var(--panel); border:3px solid var(--ink); padding:2rem; box-shadow:12px 12px 0 rgba(0,0,0,.15); }
    h1 { margin-top:0; letter-spacing:.2em; }
    table { width:100%; border-collapse:collapse; }
    th, td { text-align:left; padding:.4rem; border-bottom:1px solid rgba(0,0,0,.1); }
    .muted { color:var(--ink-soft); }
    .pending { color:#b58900; } .success { color:#2e7d32; } .failed { color:#c62828; }
  </style>
</head>
<body>
  <div id="app">
    <h1>AEGIS</h1>
    <p>Wallet: <span id="wallet" class="muted">disconnected</span></p>
    <h2>Transactions</h2>
    <table>
      <thead><tr><th>#</th><th>Type</th><th>Token</th><th>Amount</th><th>Status</th><th>Hash</th></tr></thead>
      <tbody id="txs"></tbody>
    </table>
  </div>
  <script>
    const rows = new Map();
    const tbody = document.getElementById('txs');

    function short(h) { return h && h.length > 12 ? h.slice(0, 6) + '...' + h.slice(-4) : h; }

    function render(index, rec) {
      let tr = rows.get(rec.hash);
      if (!tr) { tr = document.createElement('tr'); tbody.prepend(tr); }
      rows.set(rec.hash, tr);
      tr.innerHTML = '<td>' + index + '</td><td>' + rec.type + '</td><td>' + rec.token + '</td><td>' +
        rec.amount + '</td><td class="' + rec.status + '">' + rec.status + '</td><td>' + short(rec.hash) + '</td>';
    }

    fetch('/state').then(r => r.json()).then(s => {
      if (s.wallet && s.wallet.isConnected) document.getElementById('wallet').textContent = short(s.wallet.address);
    });

    const stream = new EventSource('/transactions/stream');
    stream.addEventListener('transaction', e => {
      const ev = JSON.parse(e.data);
      if (ev.previous_hash && rows.has(ev.previous_hash)) {
        rows.set(ev.record.hash, rows.get(ev.previous_hash));
        rows.delete(ev.previous_hash);
      }
      render(ev.index, ev.record);
    });
  </script>
</body>
</html>
`
