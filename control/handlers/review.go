package handlers

import (
	"net/http"
)

// Review handles GET / - the tag review page.
func (h *Handlers) Review(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(reviewPage))
}

const reviewPage = `<!DOCTYPE html>
<html>
<head>
    <title>mtag - Tag Review</title>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            background-color: #f5f5f5;
            color: #333;
        }
        .header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 20px 0;
        }
        .header-content, .container { max-width: 1200px; margin: 0 auto; padding: 0 20px; }
        .header h1 { font-size: 24px; }
        .container { margin-top: 20px; }
        .card {
            background: white;
            border-radius: 8px;
            padding: 24px;
            margin-bottom: 20px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .card h2 { margin-bottom: 16px; font-size: 20px; }
        table { width: 100%; border-collapse: collapse; font-size: 14px; }
        th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #eee; vertical-align: top; }
        tr.current { background-color: #e3f2fd; }
        button {
            padding: 6px 12px; border: none; border-radius: 4px; cursor: pointer;
            background-color: #667eea; color: white; font-size: 13px;
        }
        button.secondary { background-color: #9e9e9e; }
        input[type=text], textarea { width: 100%; padding: 6px; border: 1px solid #ccc; border-radius: 4px; font-size: 14px; }
        textarea { height: 240px; font-family: monospace; }
        .row { display: flex; gap: 12px; align-items: center; margin-bottom: 10px; }
        .grid { display: grid; grid-template-columns: 200px 1fr; gap: 16px; }
        .cover { width: 200px; height: 200px; object-fit: cover; background: #eee; border-radius: 4px; }
        .missing { color: #d32f2f; }
        .dirty { color: #f57c00; font-weight: 600; }
        #toast { position: fixed; bottom: 20px; right: 20px; padding: 10px 16px; border-radius: 4px; background: #333; color: white; display: none; }
    </style>
</head>
<body>
    <div class="header"><div class="header-content"><h1>mtag</h1></div></div>
    <div class="container">
        <div class="card">
            <div class="row">
                <input type="text" id="dir" placeholder="/path/to/music">
                <button onclick="setDir()">Scan</button>
            </div>
            <table>
                <thead><tr><th>File</th><th>Title</th><th>Artist</th><th>Album</th><th>Cover</th><th>Lyrics</th><th>Name</th><th></th></tr></thead>
                <tbody id="files"></tbody>
            </table>
        </div>

        <div class="card" id="editor" style="display:none">
            <div class="row">
                <button class="secondary" onclick="move(-1)">Previous</button>
                <button class="secondary" onclick="move(1)">Next</button>
                <strong id="name"></strong>
                <span id="dirty" class="dirty"></span>
            </div>
            <div class="grid">
                <img class="cover" id="cover" alt="">
                <div>
                    <div class="row"><input type="text" id="title" placeholder="Title"></div>
                    <div class="row"><input type="text" id="album" placeholder="Album"></div>
                    <div class="row"><input type="text" id="artist" placeholder="Artist"></div>
                    <div class="row"><input type="text" id="url" placeholder="Source URL"></div>
                    <div class="row"><textarea id="lrc" placeholder="[00:00.00]lyrics"></textarea></div>
                    <div class="row">
                        <button onclick="edit()">Apply edit</button>
                        <button onclick="save()">Save and next</button>
                    </div>
                </div>
            </div>
        </div>

        <div class="card" id="candidates-card" style="display:none">
            <h2>Catalog matches <small id="query"></small></h2>
            <table>
                <thead><tr><th>Title</th><th>Artist</th><th>Album</th><th></th></tr></thead>
                <tbody id="candidates"></tbody>
            </table>
        </div>
    </div>
    <div id="toast"></div>

    <script>
        function esc(s) {
            return String(s == null ? '' : s).replace(/[&<>"']/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;',"'":'&#39;'}[c]));
        }
        function toast(msg) {
            const t = document.getElementById('toast');
            t.textContent = msg; t.style.display = 'block';
            setTimeout(() => t.style.display = 'none', 3000);
        }
        async function api(method, path, body) {
            const opts = {method: method, headers: {}};
            if (body !== undefined) {
                opts.headers['Content-Type'] = 'application/json';
                opts.body = JSON.stringify(body);
            }
            const resp = await fetch(path, opts);
            const data = await resp.json().catch(() => ({}));
            if (!resp.ok) {
                if (data.state) render(data.state);
                throw new Error(data.error || resp.statusText);
            }
            return data;
        }

        let files = [];
        async function loadFiles() {
            const data = await api('GET', '/api/files');
            if (data.dir) document.getElementById('dir').value = data.dir;
            files = data.files;
            const rows = files.map((f, i) =>
                '<tr id="file-' + i + '"><td>' + esc(f.name) + '</td>' +
                '<td>' + esc(f.title) + '</td><td>' + esc(f.artist) + '</td><td>' + esc(f.album) + '</td>' +
                '<td>' + (f.has_image ? 'yes' : '<span class="missing">missing</span>') + '</td>' +
                '<td>' + (f.has_lyrics ? 'yes' : '<span class="missing">missing</span>') + '</td>' +
                '<td>' + (f.name_valid ? '' : '<span class="missing">mismatch</span>') + '</td>' +
                '<td><button onclick="openFile(' + i + ')">Edit</button></td></tr>');
            document.getElementById('files').innerHTML = rows.join('');
        }

        async function setDir() {
            try {
                await api('PUT', '/api/dir', {dir: document.getElementById('dir').value});
                await loadFiles();
            } catch (e) { toast(e.message); }
        }

        function render(state) {
            document.querySelectorAll('tr.current').forEach(r => r.classList.remove('current'));
            const editor = document.getElementById('editor');
            if (!state.open) {
                editor.style.display = 'none';
                document.getElementById('candidates-card').style.display = 'none';
                return;
            }
            const row = document.getElementById('file-' + files.findIndex(f => f.path === state.path));
            if (row) row.classList.add('current');
            editor.style.display = 'block';
            document.getElementById('name').textContent = state.name + ' (' + (state.index + 1) + '/' + state.total + ')';
            document.getElementById('dirty').textContent = state.dirty ? 'unsaved changes' : '';
            for (const k of ['title', 'album', 'artist', 'url', 'lrc']) {
                document.getElementById(k).value = state.pending[k] || '';
            }
            document.getElementById('cover').src = state.pending.has_cover ? '/api/session/cover?t=' + Date.now() : '';
        }

        async function loadCandidates() {
            const card = document.getElementById('candidates-card');
            card.style.display = 'block';
            document.getElementById('candidates').innerHTML = '<tr><td colspan="4">Searching...</td></tr>';
            try {
                const data = await api('GET', '/api/session/candidates');
                document.getElementById('query').textContent = data.query;
                document.getElementById('candidates').innerHTML = data.songs.map(s =>
                    '<tr><td><a href="https://music.163.com/#/song?id=' + s.id + '" target="_blank">' + esc(s.name) + '</a></td>' +
                    '<td>' + esc(s.artist) + '</td><td>' + esc(s.album) + '</td>' +
                    '<td><button class="secondary" onclick="showLyric(' + s.id + ')">Lyrics</button> ' +
                    '<button onclick="select(' + s.id + ')">Use</button></td></tr>').join('');
            } catch (e) {
                document.getElementById('candidates').innerHTML = '<tr><td colspan="4">' + esc(e.message) + '</td></tr>';
            }
        }

        async function openFile(i) {
            try { render(await api('POST', '/api/session/open', {path: files[i].path})); loadCandidates(); }
            catch (e) { toast(e.message); }
        }
        async function move(delta) {
            try { render(await api('POST', '/api/session/move', {delta: delta})); loadCandidates(); }
            catch (e) { toast(e.message); }
        }
        async function edit() {
            const body = {};
            for (const k of ['title', 'album', 'artist', 'url']) body[k] = document.getElementById(k).value;
            body.lyrics = document.getElementById('lrc').value;
            try { render(await api('PUT', '/api/session/edit', body)); }
            catch (e) { toast(e.message); }
        }
        async function select(id) {
            try { render(await api('POST', '/api/session/select', {id: id})); }
            catch (e) { toast(e.message); }
        }
        async function showLyric(id) {
            try { alert((await api('GET', '/api/lyrics/' + id)).text || 'No lyrics'); }
            catch (e) { toast(e.message); }
        }
        async function save() {
            try {
                const state = await api('POST', '/api/session/save');
                await loadFiles();
                render(state);
                if (state.open) loadCandidates(); else toast('Reached the end of the list');
            } catch (e) { toast(e.message); }
        }

        function connectEvents() {
            const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
            const ws = new WebSocket(proto + location.host + '/api/events');
            ws.onmessage = () => loadFiles().catch(() => {});
            ws.onclose = () => setTimeout(connectEvents, 5000);
        }

        loadFiles().then(() => api('GET', '/api/session')).then(render).catch(() => {});
        connectEvents();
    </script>
</body>
</html>`
